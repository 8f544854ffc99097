package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "context"  // bounded contexts for the user lookup
    "net/http" // HTTP status codes for responses
    "time"     // lookup timeout

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/niyamr/niyamr-backend/internal/repository" // user loading for authenticated requests
    "github.com/niyamr/niyamr-backend/internal/utils"      // session token verification
)

// SessionAuth returns an Echo middleware that validates the session
// cookie and loads the authenticated user into the request context.
// The provided secret must match the one used when issuing tokens.
// Protected handlers can read the user via `c.Get("user")` and the
// id via `c.Get("user_id")`.  A missing cookie, a bad signature, an
// expired token and a deleted user all produce the same 401.
func SessionAuth(secret string, users *repository.UserRepo) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            cookie, err := c.Cookie(utils.SessionCookieName)
            if err != nil || cookie.Value == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"message": "not authorized"})
            }
            userID, err := utils.VerifySessionToken(secret, cookie.Value)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"message": "not authorized"})
            }

            ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
            defer cancel()
            u, err := users.FindByID(ctx, userID)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"message": "not authorized"})
            }

            c.Set("user_id", u.ID)
            c.Set("user", u)
            return next(c)
        }
    }
}
