package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/staysync/booking-backend/pkg/jwt"
)

// ServiceContextKey is the key used to store the calling service in Gin context
const ServiceContextKey = "service"

// ServiceContext identifies the authenticated internal caller
type ServiceContext struct {
	Service string   `json:"service"`
	Scopes  []string `json:"scopes"`
}

// ServiceAuthMiddleware validates the service token internal callers present
// on the booking API.
func ServiceAuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authorization header is required",
				"code":    "MISSING_AUTH_HEADER",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid authorization header format. Expected: Bearer <token>",
				"code":    "INVALID_AUTH_FORMAT",
			})
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid or expired service token",
				"code":    "INVALID_TOKEN",
			})
			c.Abort()
			return
		}

		c.Set(ServiceContextKey, &ServiceContext{
			Service: claims.Service,
			Scopes:  claims.Scopes,
		})
		c.Next()
	}
}

// GetServiceContext retrieves the authenticated caller from Gin context
func GetServiceContext(c *gin.Context) (*ServiceContext, bool) {
	value, exists := c.Get(ServiceContextKey)
	if !exists {
		return nil, false
	}
	svc, ok := value.(*ServiceContext)
	return svc, ok
}
