package handlers

import (
	"swiftride/internal/models"
	"swiftride/internal/services"
	"swiftride/internal/utils"
	"swiftride/pkg/logger"

	"github.com/gin-gonic/gin"
)

type DriverHandler struct {
	presenceService services.PresenceService
	logger          *logger.Logger
}

func NewDriverHandler(presenceService services.PresenceService, logger *logger.Logger) *DriverHandler {
	return &DriverHandler{
		presenceService: presenceService,
		logger:          logger,
	}
}

type updateStatusRequest struct {
	Action   string              `json:"action" binding:"required,oneof=connect disconnect"`
	Location *models.Coordinates `json:"location"`
}

type nearbyRequest struct {
	Location models.Coordinates `json:"location" binding:"required"`
	RadiusKM float64            `json:"radius"`
}

// GetStatus lists drivers currently considered connected. Staleness is
// applied at read time, so a driver that stopped reporting simply drops
// out of this list once the window elapses.
func (h *DriverHandler) GetStatus(c *gin.Context) {
	drivers, err := h.presenceService.ListConnected(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list connected drivers")
		utils.HandleServiceError(c, err, "Could not list connected drivers")
		return
	}

	utils.SuccessResponse(c, "Connected drivers retrieved", gin.H{
		"drivers": drivers,
		"count":   len(drivers),
	})
}

// UpdateStatus marks the calling driver online or offline.
func (h *DriverHandler) UpdateStatus(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request updateStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	var err error
	switch request.Action {
	case "connect":
		if request.Location == nil {
			utils.BadRequestResponse(c, "Location is required to connect")
			return
		}
		err = h.presenceService.SetOnline(c.Request.Context(), userID, *request.Location)
	case "disconnect":
		err = h.presenceService.SetOffline(c.Request.Context(), userID)
	}

	if err != nil {
		utils.HandleServiceError(c, err, "Could not update driver status")
		return
	}

	utils.SuccessResponse(c, "Driver status updated", gin.H{"action": request.Action})
}

// Nearby returns connected drivers within a radius of the given point,
// closest first, each with a rough pickup ETA.
func (h *DriverHandler) Nearby(c *gin.Context) {
	var request nearbyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	radius := request.RadiusKM
	if radius <= 0 {
		radius = utils.DefaultSearchRadiusKM
	}
	if radius > utils.MaxSearchRadiusKM {
		radius = utils.MaxSearchRadiusKM
	}

	drivers, err := h.presenceService.NearbyDrivers(c.Request.Context(), request.Location, radius)
	if err != nil {
		utils.HandleServiceError(c, err, "Could not find nearby drivers")
		return
	}

	utils.SuccessResponse(c, "Nearby drivers retrieved", gin.H{
		"drivers": drivers,
		"count":   len(drivers),
	})
}
