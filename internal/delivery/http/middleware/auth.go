package middleware

import (
	"net/http"
	"strings"

	"github.com/b0ho/glimpse-sub008/internal/usecase/auth"
	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	provider auth.Provider
}

func NewAuthMiddleware(provider auth.Provider) *AuthMiddleware {
	return &AuthMiddleware{provider: provider}
}

// RequireAuth resolves the bearer token to an account ID and stores it on
// the request context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
			return
		}

		accountID, err := m.provider.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("account_id", accountID)
		c.Next()
	}
}
