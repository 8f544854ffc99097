package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/niyamr/niyamr-backend/internal/handler" // handlers implementing the endpoint logic
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance. Currently it exposes only a health
// check used by load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints. Register,
// verify-otp, login and logout are open; profile requires a valid
// session cookie via the provided middleware. The rate limiter wraps
// the whole group so OTP codes cannot be brute forced.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, o *handler.OAuthHandler, session, ratelimit echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	g.Use(ratelimit)
	g.POST("/register", a.Register)
	g.POST("/verify-otp", a.VerifyOTP)
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout)
	g.GET("/profile", a.Profile, session)

	// Provider handshake lives outside the /api prefix so the callback
	// URL registered with the provider stays short.
	e.GET("/auth/google", o.Start)
	e.GET("/auth/google/callback", o.Callback)
}

// RegisterScan registers the document compliance endpoint. The scan
// endpoint does not require a session, but it is rate limited per
// client since every call costs a reasoning-service invocation.
func RegisterScan(e *echo.Echo, s *handler.ScanHandler, ratelimit echo.MiddlewareFunc) {
	e.POST("/api/scan", s.Analyze, ratelimit)
}
