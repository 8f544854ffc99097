package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/niyamr/niyamr-backend/internal/model"
	"github.com/niyamr/niyamr-backend/internal/repository"
)

// ErrOTPInvalid is returned for every failed verification: unknown
// email, no pending challenge, wrong code (including partial match)
// or expired code. Callers get no hint which of these happened.
var ErrOTPInvalid = errors.New("invalid or expired otp")

// otpTTL bounds how long an issued code stays valid.
const otpTTL = 10 * time.Minute

// OTPChallenge issues and verifies one-time email verification codes.
// Codes are persisted on the user row; issuing a new code always
// overwrites the previous one, so at most one challenge is pending
// per account.
type OTPChallenge struct {
	users UserStore
}

func NewOTPChallenge(users UserStore) *OTPChallenge {
	return &OTPChallenge{users: users}
}

// Issue generates a fresh 6-digit code, stores it on the user with a
// 10 minute expiry and returns it for out-of-band delivery. The
// user's in-memory OTP fields are updated to match the store.
func (o *OTPChallenge) Issue(ctx context.Context, u *model.User) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	expires := time.Now().UTC().Add(otpTTL)
	if err := o.users.SetOTP(ctx, u.ID, code, expires); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	u.OTPCode = &code
	u.OTPExpiresAt = &expires
	return code, nil
}

// Verify checks a submitted code against the pending challenge for
// the given email. On success the challenge is cleared and the
// account marked verified in a single store mutation; on any
// mismatch or expiry the challenge is left untouched so the user may
// retry until expiry.
func (o *OTPChallenge) Verify(ctx context.Context, email, submitted string) (model.User, error) {
	u, err := o.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrOTPInvalid
		}
		return model.User{}, err
	}
	if !u.HasPendingOTP() || *u.OTPCode != submitted || !time.Now().Before(*u.OTPExpiresAt) {
		return model.User{}, ErrOTPInvalid
	}
	if err := o.users.ClearOTPMarkVerified(ctx, u.ID); err != nil {
		return model.User{}, err
	}
	u.OTPCode = nil
	u.OTPExpiresAt = nil
	u.IsVerified = true
	return u, nil
}

// generateCode draws a uniformly random code in [100000, 999999]
// using the crypto source, so codes are exactly 6 ASCII digits.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
