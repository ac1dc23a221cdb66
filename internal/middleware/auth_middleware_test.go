package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staysync/booking-backend/pkg/jwt"
)

const testSecret = "test-service-token-secret-for-testing"

func authTestRouter(jwtService *jwt.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/protected", ServiceAuthMiddleware(jwtService), func(c *gin.Context) {
		svc, ok := GetServiceContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no service context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"service": svc.Service})
	})
	return router
}

func TestServiceAuth_ValidToken(t *testing.T) {
	jwtService := jwt.NewService(testSecret, "identity-service", time.Hour)
	router := authTestRouter(jwtService)

	token, err := jwtService.GenerateToken("billing-service", []string{"bookings:read"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "billing-service")
}

func TestServiceAuth_MissingHeader(t *testing.T) {
	router := authTestRouter(jwt.NewService(testSecret, "identity-service", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServiceAuth_MalformedHeader(t *testing.T) {
	router := authTestRouter(jwt.NewService(testSecret, "identity-service", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServiceAuth_WrongSecret(t *testing.T) {
	jwtService := jwt.NewService(testSecret, "identity-service", time.Hour)
	router := authTestRouter(jwtService)

	otherService := jwt.NewService("some-other-secret", "identity-service", time.Hour)
	token, err := otherService.GenerateToken("billing-service", nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServiceAuth_ExpiredToken(t *testing.T) {
	jwtService := jwt.NewService(testSecret, "identity-service", time.Hour)
	router := authTestRouter(jwtService)

	expired := jwt.NewService(testSecret, "identity-service", -time.Hour)
	token, err := expired.GenerateToken("billing-service", nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
