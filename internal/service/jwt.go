package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const adminRole = "admin"

var jwtSecret []byte

// InitJWT sets the signing secret for operator tokens. An empty secret
// leaves admin tokens disabled.
func InitJWT(secret string) {
	jwtSecret = []byte(secret)
}

func JWTEnabled() bool {
	return len(jwtSecret) > 0
}

// GenerateAdminJWT issues an operator token for subject valid for ttl.
func GenerateAdminJWT(subject string, ttl time.Duration) (string, error) {
	if !JWTEnabled() {
		return "", errors.New("JWT_SECRET is not set")
	}
	now := time.Now().Unix()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": adminRole,
		"exp":  time.Now().Add(ttl).Unix(),
		"iat":  now,
		"nbf":  now,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseAdminJWT validates an operator token and returns its subject.
func ParseAdminJWT(tokenString string) (string, error) {
	if !JWTEnabled() {
		return "", errors.New("JWT_SECRET is not set")
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})

	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	if role, _ := claims["role"].(string); role != adminRole {
		return "", errors.New("not an admin token")
	}

	subject, ok := claims["sub"].(string)
	if !ok || subject == "" {
		return "", errors.New("sub not found")
	}

	return subject, nil
}
