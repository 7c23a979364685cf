// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	domainerrors "github.com/steelcopilot/chat-service/internal/domain/errors"
)

// Context keys set by Authenticate.
const (
	ContextKeyUserID   = "user_id"
	ContextKeyUsername = "username"
	ContextKeyPersona  = "persona"
)

// Claims are the bearer token claims the service reads. Subject carries the
// user id.
type Claims struct {
	Username string `json:"username,omitempty"`
	Persona  string `json:"persona,omitempty"`
	jwt.RegisteredClaims
}

// UserContext is the authenticated caller.
type UserContext struct {
	UserID   string
	Username string
	Persona  string
}

// AuthMiddleware validates HMAC-signed bearer tokens.
type AuthMiddleware struct {
	secret    []byte
	algorithm string
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(secret, algorithm string) (*AuthMiddleware, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}
	switch algorithm {
	case jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg():
	default:
		return nil, fmt.Errorf("unsupported token algorithm %q", algorithm)
	}

	return &AuthMiddleware{
		secret:    []byte(secret),
		algorithm: algorithm,
	}, nil
}

// Authenticate returns a gin middleware that validates the Bearer token and
// stores the caller identity in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			abortUnauthorized(c, "empty token")
			return
		}

		claims, err := m.Parse(token)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(ContextKeyUserID, claims.Subject)
		c.Set(ContextKeyUsername, claims.Username)
		c.Set(ContextKeyPersona, claims.Persona)

		c.Next()
	}
}

// Parse validates a signed token and returns its claims.
func (m *AuthMiddleware) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{m.algorithm}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

func abortUnauthorized(c *gin.Context, message string) {
	respond(c, http.StatusUnauthorized, domainerrors.ErrCodeUnauthorized, message, "")
}

// GetUser retrieves the authenticated caller from the gin context.
func GetUser(c *gin.Context) UserContext {
	return UserContext{
		UserID:   c.GetString(ContextKeyUserID),
		Username: c.GetString(ContextKeyUsername),
		Persona:  c.GetString(ContextKeyPersona),
	}
}
