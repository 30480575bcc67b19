package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiryFromToken derives a session expiry from the token itself. When the
// token is a JWT carrying an exp claim, that claim wins; otherwise the
// fallback TTL is applied from now. The parse is deliberately unverified:
// the client has no signing key, and the expiry is used only to schedule
// re-login, never to grant trust.
func ExpiryFromToken(token string, fallback time.Duration, now time.Time) time.Time {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()

	if _, _, err := parser.ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.After(now) {
			return exp.Time
		}
	}

	return now.Add(fallback)
}
