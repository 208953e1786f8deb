package auth

import (
	"fmt"
	"time"

	"poker-lab/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by every access token. Subject holds the user id.
type Claims struct {
	UserName string `json:"username"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates the HS256 bearer tokens handed out at
// login.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

func (i *TokenIssuer) Generate(userID, username string, now time.Time) (string, error) {
	claims := Claims{
		UserName: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a bearer token, rejecting any signing method
// other than the one Generate uses.
func (i *TokenIssuer) Validate(token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, fmt.Errorf("%w: %s", errors.ErrInvalidCredentials, "bad token")
	}
	return claims, nil
}
