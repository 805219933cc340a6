package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reports the exp claim of a JWT access token without verifying its signature.
//
// Opaque tokens, or JWTs without exp, report ok == false. The signature is the server's business;
// this is only used to skip a round trip for a token that is already known to be stale.
func TokenExpiry(raw string) (exp time.Time, ok bool) {
	if strings.Count(raw, ".") != 2 {
		return time.Time{}, false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
