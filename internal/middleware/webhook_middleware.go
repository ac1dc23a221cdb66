package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/staysync/booking-backend/internal/config"
)

// WebhookTokenHeader carries the shared secret a provider was issued
const WebhookTokenHeader = "X-Webhook-Token"

// WebhookAuthMiddleware authenticates webhook deliveries. Each provider has a
// shared token; only its bcrypt hash is held in configuration.
func WebhookAuthMiddleware(cfg config.WebhookConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := c.Param("provider")

		hash, ok := cfg.ProviderTokens[provider]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "unknown_provider",
				"message": "No webhook endpoint is configured for this provider",
			})
			c.Abort()
			return
		}

		token := c.GetHeader(WebhookTokenHeader)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": WebhookTokenHeader + " header is required",
			})
			c.Abort()
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid webhook token",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
