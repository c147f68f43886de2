// Package auth issues and checks the short-lived admin elevation token handed
// out by admin_validate.
package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/dmitrijs2005/townsquare/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims carries the elevated user and the roles held at issue time.
type AdminClaims struct {
	jwt.RegisteredClaims
	UserID string   `json:"uid"`
	Roles  []string `json:"roles"`
}

// HasRole reports whether role was granted when the token was issued.
func (c *AdminClaims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// GenerateAdminToken signs an HS256 token for userID valid for validity.
func GenerateAdminToken(userID string, roles []string, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		UserID: userID,
		Roles:  roles,
	})

	return token.SignedString(secretKey)
}

// ParseAdminToken verifies tokenString and returns its claims. Expired tokens
// yield common.ErrTokenExpired, anything else unverifiable common.ErrInvalidToken.
func ParseAdminToken(tokenString string, secretKey []byte) (*AdminClaims, error) {
	claims := &AdminClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
