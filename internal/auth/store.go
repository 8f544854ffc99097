package auth

import (
	"context"
	"time"

	"github.com/niyamr/niyamr-backend/internal/model"
)

// UserStore is the credential store surface the identity services
// depend on. *repository.UserRepo satisfies it; tests substitute a
// fake. The store must enforce email uniqueness itself — the
// services treat its conflict error as authoritative.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByProviderID(ctx context.Context, providerID string) (model.User, error)
	AttachProvider(ctx context.Context, id, providerID string) error
	SetOTP(ctx context.Context, id, code string, expiresAt time.Time) error
	ClearOTPMarkVerified(ctx context.Context, id string) error
	UpdatePendingRegistration(ctx context.Context, id, name, passwordHash string) error
}
