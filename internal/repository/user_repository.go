package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/niyamr/niyamr-backend/internal/model"
)

// UserRepo is the credential store. All account state lives in the
// `users` table; the unique index on email is what makes concurrent
// registration and provider-login for the same address safe.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,password_hash,provider_id,is_verified,otp_code,otp_expires_at,created_at,updated_at"

// Create inserts a new user row. A duplicate email surfaces as
// ErrEmailExists so callers can treat the conflict as "email taken"
// rather than an internal failure.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, provider_id, is_verified, otp_code, otp_expires_at) VALUES (?,?,?,?,?,?,?,?)",
		u.ID, u.Name, u.Email, u.PasswordHash, u.ProviderID, u.IsVerified, u.OTPCode, u.OTPExpiresAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// FindByEmail fetches a user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// FindByProviderID fetches a user by external provider identity.
func (r *UserRepo) FindByProviderID(ctx context.Context, providerID string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE provider_id=? LIMIT 1", providerID))
}

// FindByID fetches a user by primary key.
func (r *UserRepo) FindByID(ctx context.Context, id string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// AttachProvider links an external provider identity to an existing
// account. Existing password hash and verification state are left
// untouched.
func (r *UserRepo) AttachProvider(ctx context.Context, id, providerID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET provider_id=? WHERE id=?", providerID, id)
	return err
}

// SetOTP stores a fresh challenge on the user, overwriting any
// previous one. Code and expiry are written together.
func (r *UserRepo) SetOTP(ctx context.Context, id, code string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET otp_code=?, otp_expires_at=? WHERE id=?", code, expiresAt, id)
	return err
}

// ClearOTPMarkVerified atomically clears the pending challenge and
// marks the account verified. Both OTP columns go NULL in the same
// statement that flips is_verified.
func (r *UserRepo) ClearOTPMarkVerified(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET otp_code=NULL, otp_expires_at=NULL, is_verified=1 WHERE id=?", id)
	return err
}

// UpdatePendingRegistration overwrites the name and password hash of
// an account that registered but never verified. Used when the same
// email registers again before completing the OTP step.
func (r *UserRepo) UpdatePendingRegistration(ctx context.Context, id, name, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, password_hash=? WHERE id=? AND is_verified=0", name, passwordHash, id)
	return err
}

// scanOne reads a single user row, mapping sql.ErrNoRows onto the
// package-level ErrNotFound sentinel.
func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.ProviderID,
		&u.IsVerified, &u.OTPCode, &u.OTPExpiresAt, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	return u, err
}
