package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_stock/internal/utils"
)

// Context keys set by JWTMiddleware.
const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
)

// TokenValidator checks a bearer token and returns its claims.
type TokenValidator interface {
	Validate(token string) (*utils.Claims, error)
}

// JWTMiddleware enforces bearer token authentication.
type JWTMiddleware struct {
	validator TokenValidator
}

// NewJWTMiddleware constructs a new JWTMiddleware.
func NewJWTMiddleware(validator TokenValidator) *JWTMiddleware {
	return &JWTMiddleware{validator: validator}
}

// Handle returns a Gin middleware that rejects requests without a valid
// Authorization header.
func (m *JWTMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(c, 401, "UNAUTHORIZED", "Missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.Error(c, 401, "UNAUTHORIZED", "Invalid authorization header")
			c.Abort()
			return
		}

		if !m.authenticate(c, parts[1]) {
			return
		}
		c.Next()
	}
}

// HandleQueryToken authenticates with the token query parameter. EventSource
// clients cannot set headers.
func (m *JWTMiddleware) HandleQueryToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			utils.Error(c, 401, "UNAUTHORIZED", "Missing token")
			c.Abort()
			return
		}
		if !m.authenticate(c, token) {
			return
		}
		c.Next()
	}
}

func (m *JWTMiddleware) authenticate(c *gin.Context, token string) bool {
	claims, err := m.validator.Validate(token)
	if err != nil {
		message := "Invalid token"
		if errors.Is(err, utils.ErrExpiredToken) {
			message = "Token has expired"
		}
		utils.Error(c, 401, "INVALID_TOKEN", message)
		c.Abort()
		return false
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextEmail, claims.Email)
	return true
}
