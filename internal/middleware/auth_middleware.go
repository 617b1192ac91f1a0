package middleware

import (
	"net/http"
	"strings"

	"swiftride/internal/utils"

	"github.com/gin-gonic/gin"
)

// AuthRequired validates the bearer token and sets user identity on the
// context. Every failure mode gets the same generic 401; callers cannot
// distinguish a malformed token from an expired one.
func AuthRequired(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header required")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token required")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, jwtSecret)
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_role", claims.Role)

		c.Next()
	}
}

// DriverRequired ensures the authenticated user is a driver.
func DriverRequired() gin.HandlerFunc {
	return requireRole("driver")
}

// PassengerRequired ensures the authenticated user is a passenger.
func PassengerRequired() gin.HandlerFunc {
	return requireRole("passenger")
}

func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get("user_role")
		if !exists {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "User role not found")
			c.Abort()
			return
		}

		roleStr, ok := userRole.(string)
		if !ok || roleStr != role {
			utils.ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", role+" access required")
			c.Abort()
			return
		}

		c.Next()
	}
}
