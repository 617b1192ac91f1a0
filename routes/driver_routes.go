package routes

import (
	"swiftride/internal/handlers"
	"swiftride/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupDriverRoutes sets up routes for driver presence and discovery
func SetupDriverRoutes(r *gin.RouterGroup, driverHandler *handlers.DriverHandler, jwtSecret string) {
	// Public: anyone can see who is online
	drivers := r.Group("/drivers")
	{
		drivers.GET("/status", driverHandler.GetStatus)
		drivers.POST("/nearby", driverHandler.Nearby)
	}

	// Presence updates require an authenticated driver
	presence := r.Group("/drivers")
	presence.Use(middleware.AuthRequired(jwtSecret), middleware.DriverRequired())
	{
		presence.POST("/status", driverHandler.UpdateStatus)
	}
}
