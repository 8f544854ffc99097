package utils // package utils provides helper functions for session tokens and hashing

import (
    "crypto/rand"  // secure random number generation
    "encoding/hex" // hex encoding for random values
    "errors"       // sentinel error definitions
    "net/http"     // cookie construction
    "time"         // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
    "github.com/labstack/echo/v4"  // Echo context for cookie transport
)

// SessionCookieName is the cookie under which the session token
// travels.  The cookie is httpOnly so scripts never see it.
const SessionCookieName = "jwt"

// ErrInvalidToken is returned when a presented session token fails
// signature verification, has expired, or does not carry the
// expected claims.  Callers cannot distinguish the cases.
var ErrInvalidToken = errors.New("invalid or expired session token")

// SessionToken represents a signed session credential along with its
// expiry.  The Token field contains the serialized JWT string.  Exp
// stores the expiration timestamp; the transport cookie's lifetime
// matches it exactly.
type SessionToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewSessionToken builds and signs an HS256 JWT for a user.  It takes
// the signing secret, the user ID and a TTL in minutes, and returns a
// SessionToken containing the signed token and its expiration time.
// The JWT includes standard claims: subject (sub), expiration (exp)
// and issued at (iat).  Sessions are stateless: nothing is stored
// server side, so revocation happens only through expiry or cookie
// overwrite.
func NewSessionToken(secret, userID string, ttlMin int) (SessionToken, error) {
    // Calculate the expiration time by adding the TTL to the current UTC time.
    exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub": userID,
        "exp": exp.Unix(),
        "iat": time.Now().UTC().Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return SessionToken{}, err
    }
    return SessionToken{Token: signed, Exp: exp}, nil
}

// VerifySessionToken parses and validates a session token, returning
// the user ID it was issued for.  The signing method must be HMAC;
// tokens signed any other way are rejected.  Expiry is enforced by
// the jwt library during parsing.
func VerifySessionToken(secret, raw string) (string, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Type assert the signing method to HMAC; reject others.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidToken
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return "", ErrInvalidToken
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return "", ErrInvalidToken
    }
    sub, ok := claims["sub"].(string)
    if !ok || sub == "" {
        return "", ErrInvalidToken
    }
    return sub, nil
}

// AttachSessionCookie sets the session cookie on the response.  The
// cookie expiry matches the token expiry so the browser drops the
// credential at the same moment it stops verifying.
func AttachSessionCookie(c echo.Context, token SessionToken) {
    c.SetCookie(&http.Cookie{
        Name:     SessionCookieName,
        Value:    token.Token,
        Path:     "/",
        Expires:  token.Exp,
        HttpOnly: true,
        SameSite: http.SameSiteLaxMode,
    })
}

// ClearSessionCookie overwrites the session cookie with an empty
// value and an epoch expiry, which is the only form of logout a
// stateless session scheme supports.
func ClearSessionCookie(c echo.Context) {
    c.SetCookie(&http.Cookie{
        Name:     SessionCookieName,
        Value:    "",
        Path:     "/",
        Expires:  time.Unix(0, 0),
        HttpOnly: true,
        SameSite: http.SameSiteLaxMode,
    })
}

// RandomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.  It is used for the OAuth
// state parameter.  If the random number generator fails, an error
// is returned.
func RandomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
