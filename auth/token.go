package auth

import (
	"errors"
	"fmt"

	"github.com/dgrijalva/jwt-go"

	gallery "github.com/bitmark-inc/client-gallery"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identifies the caller of a protected request
type Claims struct {
	jwt.StandardClaims
	ID    string `json:"id"`
	Email string `json:"email"`
}

// IssueToken signs a bearer token for the user that expires after the configured ttl.
func (s *Service) IssueToken(user gallery.User) (string, error) {
	now := s.now()
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   user.ID.Hex(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
		ID:    user.ID.Hex(),
		Email: user.Email,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return token, nil
}

// ParseToken validates a bearer token and returns its claims.
func (s *Service) ParseToken(tokenString string) (Claims, error) {
	var claims Claims

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	if !token.Valid || claims.ID == "" {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}
