package utils

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/blake2b"
)

// TokenFingerprint identifies a bearer token in cache keys without storing it.
func TokenFingerprint(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

// IsExpiredJWT reports whether token is a JWT whose exp claim lies before now.
// The signature is not checked; opaque tokens are never expired.
func IsExpiredJWT(token string, now time.Time) bool {
	if strings.Count(token, ".") != 2 {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return !claims.VerifyExpiresAt(now.Unix(), false)
}
