package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrOpaque is returned by Inspect for tokens that are not JWTs.
var ErrOpaque = errors.New("token is not a JWT")

// Claims is the payload carried by session tokens.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Inspect decodes raw without verifying its signature.
func Inspect(raw string) (*Claims, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, ErrOpaque
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, errors.Join(ErrOpaque, err)
	}
	return claims, nil
}

// Expired reports whether raw is a JWT whose exp lies more than leeway
// before now. Opaque tokens and JWTs without exp never expire.
func Expired(raw string, now time.Time, leeway time.Duration) bool {
	claims, err := Inspect(raw)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return now.After(claims.ExpiresAt.Time.Add(leeway))
}
