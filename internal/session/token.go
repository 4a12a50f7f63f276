package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry extracts the exp claim from an access token without verifying
// the signature. Signature validation is the issuing server's concern; the
// client only needs to know when to refresh.
func tokenExpiry(raw string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, fmt.Errorf("decode access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("access token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}

// expiresWithin reports whether expiry falls inside [now, now+window), or is
// already in the past.
func expiresWithin(expiry, now time.Time, window time.Duration) bool {
	return !expiry.After(now.Add(window))
}
