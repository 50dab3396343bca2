package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims structure for custom claims in JWT
type Claims struct {
	MemberID string `json:"user_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

var (
	// ErrMissingToken no token configured
	ErrMissingToken = errors.New("missing token")
	// ErrMissingSubject token carries no user id
	ErrMissingSubject = errors.New("token has no user id")
)

// GenerateJWT signs a HS256 token for memberID
func GenerateJWT(secret []byte, memberID, role, issuer string, ttl time.Duration) (string, error) {
	claims := Claims{
		MemberID: memberID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// ParseJWT validates the signature with secret and returns the claims
func ParseJWT(secret []byte, tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(StripBearer(tokenStr), &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ParseUnverified reads the claims without checking the signature.
// The client never holds the signing key; the gateway verifies the token.
func ParseUnverified(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(StripBearer(tokenStr), claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// StripBearer removes a leading "Bearer " prefix
func StripBearer(t string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "Bearer "))
}
