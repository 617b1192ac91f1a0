package routes

import (
	"swiftride/internal/handlers"
	"swiftride/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes sets up routes for account and session management
func SetupAuthRoutes(r *gin.RouterGroup, authHandler *handlers.AuthHandler, jwtSecret string) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	profile := r.Group("/auth")
	profile.Use(middleware.AuthRequired(jwtSecret))
	{
		profile.GET("/profile", authHandler.GetProfile)
		profile.PUT("/profile", authHandler.UpdateProfile)
		profile.DELETE("/profile", authHandler.DeleteAccount)
		profile.POST("/convert-to-driver", authHandler.ConvertToDriver)
	}
}
