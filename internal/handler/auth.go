package handler

import (
	"context"  // provides context with cancellation for DB calls
	"errors"   // sentinel error matching
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // timeouts for DB calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/niyamr/niyamr-backend/internal/auth"
	"github.com/niyamr/niyamr-backend/internal/config"
	"github.com/niyamr/niyamr-backend/internal/model"
	"github.com/niyamr/niyamr-backend/internal/queue"
	queue_publisher "github.com/niyamr/niyamr-backend/internal/service"
	"github.com/niyamr/niyamr-backend/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints. Publish is
// the OTP mail dispatch; it defaults to the RabbitMQ publisher and
// is a field so tests can substitute it.
type AuthHandler struct {
	Cfg      config.Config
	Identity *auth.IdentityResolver
	OTP      *auth.OTPChallenge
	Publish  func(ctx context.Context, ev queue.OTPEmailEvent) error
}

func NewAuthHandler(cfg config.Config, identity *auth.IdentityResolver, otp *auth.OTPChallenge) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Identity: identity, OTP: otp, Publish: queue_publisher.PublishOTPEmail}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type verifyOtpReq struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPart struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Register: create an unverified account and queue the OTP mail.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "name/email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, code, err := h.Identity.RegisterWithPassword(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "User already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "registration failed"})
	}

	ev := queue.OTPEmailEvent{
		Email:    u.Email,
		Name:     u.Name,
		Code:     code,
		IssuedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.Publish(ctx, ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not send verification code"})
	}

	return c.JSON(http.StatusCreated, echo.Map{"message": "OTP sent to email"})
}

// VerifyOTP: complete a pending registration and start a session.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyOtpReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.OTP = strings.TrimSpace(req.OTP)
	if req.Email == "" || req.OTP == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "email/otp required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.OTP.Verify(ctx, req.Email, req.OTP)
	if err != nil {
		if errors.Is(err, auth.ErrOTPInvalid) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid or expired OTP"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "verification failed"})
	}

	if err := h.startSession(c, u.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "issue session failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// Login: verify password and start a session. Unverified accounts
// get a distinct 403 only after the password matched; everything
// else is the same 401.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Identity.AuthenticateWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid email or password"})
		case errors.Is(err, auth.ErrNotVerified):
			return c.JSON(http.StatusForbidden, echo.Map{"message": "Please verify your email first"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "login failed"})
	}

	if err := h.startSession(c, u.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "issue session failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// Logout: overwrite the session cookie with an expired one. Sessions
// are stateless so there is nothing to revoke server side.
func (h *AuthHandler) Logout(c echo.Context) error {
	utils.ClearSessionCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out"})
}

// Profile: return the authenticated user (protected).
func (h *AuthHandler) Profile(c echo.Context) error {
	u, ok := c.Get("user").(model.User)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "not authorized"})
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

// startSession issues a session token for the user and attaches the
// transport cookie.
func (h *AuthHandler) startSession(c echo.Context, userID string) error {
	token, err := utils.NewSessionToken(h.Cfg.JWTSecret, userID, h.Cfg.SessionTTLMin)
	if err != nil {
		return err
	}
	utils.AttachSessionCookie(c, token)
	return nil
}
