package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Tokens are issued by the frontend's auth layer with a shared HS256 secret;
// the backend only verifies them. GenerateToken exists for tests and the
// local development mode.

func GenerateToken(secret []byte, userId uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"sub": userId.String(),
		"exp": time.Now().Add(30 * 24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func ParseToken(secret []byte, tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, fmt.Errorf("token is missing subject claim")
	}

	userId, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject is not a valid user id: %w", err)
	}

	return userId, nil
}
