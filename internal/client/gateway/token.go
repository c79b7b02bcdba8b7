package gateway

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenUsable reports whether a gateway bearer token is worth sending.
// Opaque tokens always are; JWTs are skipped once their exp claim has
// passed. The signature is not checked, the gateway does that.
func tokenUsable(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	if strings.Count(token, ".") != 2 {
		return true
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return false
	}
	return true
}
