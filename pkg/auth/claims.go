// Package auth inspects the access tokens handed to the core by the
// external authentication subsystem. The core never mints or verifies
// tokens; it only decodes claims to learn who the token belongs to and
// whether it is already expired client-side.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/solmercado/storefront-core/pkg/config"
	pkgerrors "github.com/solmercado/storefront-core/pkg/errors"
)

// AccessTokenClaims is the subset of the backend-issued JWT the core reads.
type AccessTokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// DecodeClaims parses the token without signature verification; the
// backend is the verifier, the core only needs the payload.
func DecodeClaims(tokenString string) (*AccessTokenClaims, error) {
	trimmed := strings.TrimSpace(tokenString)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "access token is required")
	}

	claims := &AccessTokenClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(trimmed, claims); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "decode access token")
	}
	return claims, nil
}

// SubjectID returns the best-effort user identity carried by the claims.
func (c *AccessTokenClaims) SubjectID() string {
	if c == nil {
		return ""
	}
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// IsExpired reports whether the token's exp has passed, with skew.
func (c *AccessTokenClaims) IsExpired(cfg config.JWTConfig, now time.Time) bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}
	return now.Add(-cfg.ClockSkew).After(c.ExpiresAt.Time)
}
