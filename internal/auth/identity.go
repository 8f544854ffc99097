package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/niyamr/niyamr-backend/internal/model"
	"github.com/niyamr/niyamr-backend/internal/repository"
	"github.com/niyamr/niyamr-backend/internal/utils"
)

var (
	// ErrEmailTaken is returned when registering an email that already
	// belongs to a verified account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned when the email is unknown or the
	// password does not match. The two cases are indistinguishable to
	// the caller so login cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNotVerified is returned only after a successful password match
	// against an account that never completed OTP verification.
	ErrNotVerified = errors.New("email not verified")
)

// IdentityResolver merges and creates user accounts across the
// password and provider authentication paths. The credential store's
// unique email index is the guard against concurrent registrations;
// a store-level conflict surfaces here as ErrEmailTaken or resolves
// into account linking, never into duplicate accounts.
type IdentityResolver struct {
	users      UserStore
	otp        *OTPChallenge
	bcryptCost int
}

func NewIdentityResolver(users UserStore, otp *OTPChallenge, bcryptCost int) *IdentityResolver {
	return &IdentityResolver{users: users, otp: otp, bcryptCost: bcryptCost}
}

// RegisterWithPassword creates an unverified password account and
// issues an OTP challenge, returning the user together with the code
// for delivery. Registering an email held by a verified account
// fails with ErrEmailTaken; registering an email with a pending,
// unverified registration overwrites that registration (name,
// password hash) and replaces its challenge rather than stacking a
// second one.
func (s *IdentityResolver) RegisterWithPassword(ctx context.Context, name, email, rawPassword string) (model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(rawPassword, s.bcryptCost)
	if err != nil {
		return model.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsVerified {
			return model.User{}, "", ErrEmailTaken
		}
		if err := s.users.UpdatePendingRegistration(ctx, existing.ID, name, hash); err != nil {
			return model.User{}, "", err
		}
		existing.Name = name
		existing.PasswordHash = &hash
		code, err := s.otp.Issue(ctx, &existing)
		if err != nil {
			return model.User{}, "", err
		}
		return existing, code, nil
	case !errors.Is(err, repository.ErrNotFound):
		return model.User{}, "", err
	}

	u := model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: &hash,
		IsVerified:   false,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			// Lost a race against a concurrent registration or provider
			// login for the same email; the unique index decided.
			return model.User{}, "", ErrEmailTaken
		}
		return model.User{}, "", err
	}
	code, err := s.otp.Issue(ctx, &u)
	if err != nil {
		return model.User{}, "", err
	}
	return u, code, nil
}

// AuthenticateWithPassword validates a password login. An unknown
// email and a wrong password both yield ErrInvalidCredentials; only
// a correct password against an unverified account yields the
// distinct ErrNotVerified.
func (s *IdentityResolver) AuthenticateWithPassword(ctx context.Context, email, rawPassword string) (model.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, err
	}
	if u.PasswordHash == nil || !utils.VerifyPassword(*u.PasswordHash, rawPassword) {
		return model.User{}, ErrInvalidCredentials
	}
	if !u.IsVerified {
		return model.User{}, ErrNotVerified
	}
	return u, nil
}

// ResolveOrCreateFromProvider maps a completed provider handshake to
// exactly one user record. Lookup order matters: provider id first
// (so an already linked account never re-links on later logins),
// then email (account linking for password-registered users), then
// creation. Provider identities are trusted, so created accounts are
// verified without an OTP step.
func (s *IdentityResolver) ResolveOrCreateFromProvider(ctx context.Context, providerID, email, displayName string) (model.User, error) {
	if u, err := s.users.FindByProviderID(ctx, providerID); err == nil {
		return u, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.User{}, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if u, err := s.users.FindByEmail(ctx, email); err == nil {
		if err := s.users.AttachProvider(ctx, u.ID, providerID); err != nil {
			return model.User{}, err
		}
		u.ProviderID = &providerID
		return u, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.User{}, err
	}

	u := model.User{
		ID:         uuid.New().String(),
		Name:       displayName,
		Email:      email,
		ProviderID: &providerID,
		IsVerified: true,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			// Concurrent registration won the unique index; link to the
			// row that got there first instead of failing the login.
			won, lookupErr := s.users.FindByEmail(ctx, email)
			if lookupErr != nil {
				return model.User{}, lookupErr
			}
			if err := s.users.AttachProvider(ctx, won.ID, providerID); err != nil {
				return model.User{}, err
			}
			won.ProviderID = &providerID
			return won, nil
		}
		return model.User{}, err
	}
	return u, nil
}
