package routes

import (
	"swiftride/internal/handlers"
	"swiftride/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupTripRoutes sets up routes for the trip lifecycle and its notifications
func SetupTripRoutes(r *gin.RouterGroup, tripHandler *handlers.TripHandler, jwtSecret string) {
	trips := r.Group("/trips")
	trips.Use(middleware.AuthRequired(jwtSecret))
	{
		trips.POST("", tripHandler.CreateTrip)
		trips.GET("", tripHandler.GetTripRequests)
		trips.POST("/respond", tripHandler.RespondToTrip)
		trips.GET("/notifications", tripHandler.GetNotifications)
		trips.POST("/notifications", tripHandler.MarkNotificationRead)
		trips.GET("/history", tripHandler.GetHistory)
		trips.POST("/history", tripHandler.CompleteTrip)
		trips.POST("/cancel", tripHandler.CancelTrip)
		trips.POST("/estimate", tripHandler.Estimate)
	}
}
