package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireUser lit l'identité posée par la gateway en amont (les mécanismes
// d'authentification ne vivent pas dans ce service).
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Set("email", c.GetHeader("X-User-Email"))
		c.Next()
	}
}

// RequireAdmin réserve un endpoint aux appels marqués admin par la gateway
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-User-Role") != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Accès réservé aux administrateurs"})
			c.Abort()
			return
		}
		c.Next()
	}
}
