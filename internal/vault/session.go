package vault

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated vault session handle. It is established
// once by the process entry point and passed read-only into the workflow
// components; nothing in the workflow mutates it.
type Session struct {
	// Token is the bearer token sent on every vault request.
	Token string
	// User is the authenticated account name.
	User string
	// ExpiresAt is the token expiry parsed from its JWT claims; zero when
	// the token carries no expiry.
	ExpiresAt time.Time
}

// Expired reports whether the session token has a known expiry in the
// past. A token without an exp claim never reports expired.
func (s *Session) Expired() bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(s.ExpiresAt)
}

// parseExpiry extracts the exp claim from the session JWT. The signature
// is not verified here: the vault signed the token for itself, the client
// only needs the expiry to detect stale sessions before starting a run.
func parseExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
