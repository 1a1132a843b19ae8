// Package auth implements the credential primitives of the server: JWT
// issuance/verification for access and refresh tokens, and bcrypt password
// hashing.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/adarshn/notebox/internal/common"
	"github.com/adarshn/notebox/internal/server/models"
)

// AccessClaims is the claim set of a short-lived access token. Subject
// carries the user id.
type AccessClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
}

// RefreshClaims is the claim set of a refresh token. It intentionally omits
// the full name; the subject id and login identifiers are enough to rotate.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Email    string `json:"email"`
}

func registeredClaims(userID string, validity time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
	}
}

// GenerateAccessToken signs an access token for the user with the access
// secret.
func GenerateAccessToken(user *models.User, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: registeredClaims(user.ID, validity),
		Username:         user.Username,
		Email:            user.Email,
		Fullname:         user.Fullname,
	})

	return token.SignedString(secretKey)
}

// GenerateRefreshToken signs a refresh token for the user with the refresh
// secret. The caller is responsible for persisting the result as the user's
// single valid refresh token.
func GenerateRefreshToken(user *models.User, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		RegisteredClaims: registeredClaims(user.ID, validity),
		Username:         user.Username,
		Email:            user.Email,
	})

	return token.SignedString(secretKey)
}

func keyFunc(secretKey []byte) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secretKey, nil
	}
}

// ParseAccessToken verifies signature and expiry against the access secret
// and returns the claims. Any failure maps to common.ErrInvalidToken.
func ParseAccessToken(tokenString string, secretKey []byte) (*AccessClaims, error) {
	claims := &AccessClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc(secretKey))
	if err != nil {
		return nil, errors.Join(common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// ParseRefreshToken verifies signature and expiry against the refresh secret
// and returns the claims. The caller must additionally confirm the token
// equals the value stored on the user record.
func ParseRefreshToken(tokenString string, secretKey []byte) (*RefreshClaims, error) {
	claims := &RefreshClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc(secretKey))
	if err != nil {
		return nil, errors.Join(common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
