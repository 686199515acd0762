package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UsernameKey is the gin context key holding the token's username
const UsernameKey = "username"

// TokenParser validates a bearer token and returns its username
type TokenParser interface {
	Parse(token string) (string, error)
}

// JWTAuth reads an optional bearer token. Requests without one pass through
// untouched; a malformed or invalid token is rejected with 401.
func JWTAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Invalid authorization header format",
			})
			return
		}

		username, err := tokens.Parse(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Invalid token",
			})
			return
		}

		c.Set(UsernameKey, username)
		c.Next()
	}
}

// RequireToken rejects requests that did not carry a valid bearer token
func RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(UsernameKey) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Authorization header required",
			})
			return
		}
		c.Next()
	}
}
