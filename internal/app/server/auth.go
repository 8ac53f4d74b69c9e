package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// issueToken mints an HS256 token binding an identity to its connection.
func (s *server) issueToken(userID, username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"name": username,
		"iat":  now.Unix(),
		"exp":  now.Add(s.config.TokenDuration).Unix(),
	})
	return token.SignedString([]byte(s.config.AuthSecret))
}

// validateToken checks the token signature and extracts the identity id.
func (s *server) validateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.AuthSecret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid map claims")
	}
	v, ok := mapClaims["sub"]
	if !ok {
		return "", fmt.Errorf("user id not found")
	}
	userID, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("invalid user id")
	}
	return userID, nil
}

// auth authenticates a request and extracts the identity id. Tokens are
// accepted from the Authorization header (with or without the Bearer prefix)
// or, for websocket upgrades, the token query parameter.
func (s *server) auth(r *http.Request) (string, error) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return "", fmt.Errorf("no authorization")
	}
	return s.validateToken(token)
}
