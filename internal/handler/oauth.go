package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/niyamr/niyamr-backend/internal/auth"
	"github.com/niyamr/niyamr-backend/internal/config"
	"github.com/niyamr/niyamr-backend/internal/oauth"
	"github.com/niyamr/niyamr-backend/internal/utils"
)

// stateCookieName holds the anti-forgery state between the redirect
// to the provider and the callback.
const stateCookieName = "oauth_state"

// OAuthHandler drives the external provider handshake. The provider
// is injected as a constructed value, never registered globally.
type OAuthHandler struct {
	Cfg      config.Config
	Provider *oauth.Provider
	Identity *auth.IdentityResolver
}

func NewOAuthHandler(cfg config.Config, p *oauth.Provider, identity *auth.IdentityResolver) *OAuthHandler {
	return &OAuthHandler{Cfg: cfg, Provider: p, Identity: identity}
}

// Start redirects the browser to the provider consent page with a
// fresh state value pinned in a short-lived cookie.
func (h *OAuthHandler) Start(c echo.Context) error {
	state, err := utils.RandomHex(16)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not start sign-in"})
	}
	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, h.Provider.AuthURL(state))
}

// Callback completes the handshake: state check, code exchange,
// identity resolution (link or create), session cookie, and a
// redirect back to the configured client origin.
func (h *OAuthHandler) Callback(c echo.Context) error {
	cookie, err := c.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != c.QueryParam("state") {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "state mismatch"})
	}
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "missing code"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	profile, err := h.Provider.FetchProfile(ctx, code)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"message": "provider handshake failed"})
	}

	u, err := h.Identity.ResolveOrCreateFromProvider(ctx, profile.ProviderID, profile.Email, profile.Name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "sign-in failed"})
	}

	token, err := utils.NewSessionToken(h.Cfg.JWTSecret, u.ID, h.Cfg.SessionTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "issue session failed"})
	}
	utils.AttachSessionCookie(c, token)
	return c.Redirect(http.StatusFound, h.Cfg.ClientURL)
}
