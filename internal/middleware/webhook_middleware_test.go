package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/staysync/booking-backend/internal/config"
)

func webhookTestRouter(t *testing.T, token string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.WebhookConfig{
		ProviderTokens: map[string]string{"stayport": string(hash)},
	}

	router := gin.New()
	router.POST("/webhooks/:provider", WebhookAuthMiddleware(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestWebhookAuth_ValidToken(t *testing.T) {
	router := webhookTestRouter(t, "secret-token")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stayport", nil)
	req.Header.Set(WebhookTokenHeader, "secret-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookAuth_WrongToken(t *testing.T) {
	router := webhookTestRouter(t, "secret-token")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stayport", nil)
	req.Header.Set(WebhookTokenHeader, "guessed-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookAuth_MissingToken(t *testing.T) {
	router := webhookTestRouter(t, "secret-token")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stayport", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookAuth_UnconfiguredProvider(t *testing.T) {
	router := webhookTestRouter(t, "secret-token")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/otherchannel", nil)
	req.Header.Set(WebhookTokenHeader, "secret-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
