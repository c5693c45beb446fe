package middleware

import (
	"net/http"
	"strings"

	"gold_mining/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminJWT requires a bearer token issued by service.GenerateAdminJWT.
func AdminJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		subject, err := service.ParseAdminJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("admin", subject)
		c.Next()
	}
}
