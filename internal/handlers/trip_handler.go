package handlers

import (
	"swiftride/internal/models"
	"swiftride/internal/services"
	"swiftride/internal/utils"
	"swiftride/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripHandler struct {
	tripService services.TripService
	logger      *logger.Logger
}

func NewTripHandler(tripService services.TripService, logger *logger.Logger) *TripHandler {
	return &TripHandler{
		tripService: tripService,
		logger:      logger,
	}
}

type respondToTripRequest struct {
	TripID string `json:"tripId" binding:"required"`
	Action string `json:"action" binding:"required,oneof=accept reject"`
}

type notificationActionRequest struct {
	NotificationID string `json:"notificationId" binding:"required"`
}

type completeTripRequest struct {
	TripID string `json:"tripId" binding:"required"`
}

// CreateTrip opens a pending trip addressed to one driver and notifies them.
func (h *TripHandler) CreateTrip(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request services.CreateTripRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	tripID, err := h.tripService.CreateTrip(c.Request.Context(), userID, &request)
	if err != nil {
		h.logger.WithError(err).WithUserID(userID).Warn("Trip creation failed")
		utils.HandleServiceError(c, err, "Could not create trip")
		return
	}

	utils.CreatedResponse(c, "Trip requested", gin.H{"tripId": tripID.Hex()})
}

// GetTripRequests returns the caller's unread incoming trip requests. Only
// drivers receive trip-request notifications, so for a passenger this is
// always an empty list.
func (h *TripHandler) GetTripRequests(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	notifications, err := h.tripService.ListNotifications(c.Request.Context(), userID, models.UserRoleDriver)
	if err != nil {
		utils.HandleServiceError(c, err, "Could not list trip requests")
		return
	}

	utils.SuccessResponse(c, "Trip requests retrieved", gin.H{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

// RespondToTrip accepts or rejects a pending trip on behalf of the
// assigned driver. Exactly one response wins; later attempts see the
// trip as already processed.
func (h *TripHandler) RespondToTrip(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request respondToTripRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	tripID, err := primitive.ObjectIDFromHex(request.TripID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid trip id")
		return
	}

	if err := h.tripService.RespondToTrip(c.Request.Context(), userID, tripID, request.Action); err != nil {
		utils.HandleServiceError(c, err, "Could not respond to trip")
		return
	}

	utils.SuccessResponse(c, "Trip response recorded", gin.H{"action": request.Action})
}

// GetNotifications lists the caller's unread notifications scoped by role:
// trip requests for drivers, accept/reject outcomes for passengers.
func (h *TripHandler) GetNotifications(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	notifications, err := h.tripService.ListNotifications(c.Request.Context(), userID, role)
	if err != nil {
		utils.HandleServiceError(c, err, "Could not list notifications")
		return
	}

	utils.SuccessResponse(c, "Notifications retrieved", gin.H{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

func (h *TripHandler) MarkNotificationRead(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request notificationActionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	notificationID, err := primitive.ObjectIDFromHex(request.NotificationID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid notification id")
		return
	}

	if err := h.tripService.MarkNotificationRead(c.Request.Context(), userID, notificationID); err != nil {
		utils.HandleServiceError(c, err, "Could not mark notification as read")
		return
	}

	utils.SuccessResponse(c, "Notification marked as read", nil)
}

// GetHistory lists the caller's finished trips, each enriched with the
// counterparty's public profile.
func (h *TripHandler) GetHistory(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	trips, err := h.tripService.GetTripHistory(c.Request.Context(), userID, role)
	if err != nil {
		utils.HandleServiceError(c, err, "Could not load trip history")
		return
	}

	utils.SuccessResponse(c, "Trip history retrieved", gin.H{
		"trips": trips,
		"count": len(trips),
	})
}

// CompleteTrip moves an accepted trip to completed.
func (h *TripHandler) CompleteTrip(c *gin.Context) {
	_, _, ok := currentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request completeTripRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	tripID, err := primitive.ObjectIDFromHex(request.TripID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid trip id")
		return
	}

	if err := h.tripService.CompleteTrip(c.Request.Context(), tripID); err != nil {
		utils.HandleServiceError(c, err, "Could not complete trip")
		return
	}

	utils.SuccessResponse(c, "Trip completed", nil)
}

// CancelTrip lets the passenger cancel a trip they own while it is accepted.
func (h *TripHandler) CancelTrip(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request completeTripRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	tripID, err := primitive.ObjectIDFromHex(request.TripID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid trip id")
		return
	}

	if err := h.tripService.CancelTrip(c.Request.Context(), userID, tripID); err != nil {
		utils.HandleServiceError(c, err, "Could not cancel trip")
		return
	}

	utils.SuccessResponse(c, "Trip cancelled", nil)
}

// Estimate quotes distance, travel time and fare range for a route without
// creating a trip.
func (h *TripHandler) Estimate(c *gin.Context) {
	var request services.EstimateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	estimate, err := h.tripService.EstimateTrip(c.Request.Context(), &request)
	if err != nil {
		utils.HandleServiceError(c, err, "Could not estimate trip")
		return
	}

	utils.SuccessResponse(c, "Trip estimated", estimate)
}
