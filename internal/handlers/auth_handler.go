package handlers

import (
	"swiftride/internal/services"
	"swiftride/internal/utils"
	"swiftride/pkg/logger"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService services.AuthService
	logger      *logger.Logger
}

func NewAuthHandler(authService services.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register creates a new passenger or driver account.
func (h *AuthHandler) Register(c *gin.Context) {
	var request services.RegisterRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	response, err := h.authService.Register(c.Request.Context(), &request)
	if err != nil {
		h.logger.WithError(err).Warn("Registration failed")
		utils.HandleServiceError(c, err, utils.ErrEmailTaken)
		return
	}

	utils.CreatedResponse(c, "Account created successfully", response)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var request services.LoginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	response, err := h.authService.Login(c.Request.Context(), &request)
	if err != nil {
		utils.HandleServiceError(c, err, utils.ErrInvalidCredentials)
		return
	}

	utils.SuccessResponse(c, "Logged in successfully", response)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var request struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	response, err := h.authService.RefreshToken(c.Request.Context(), request.RefreshToken)
	if err != nil {
		utils.HandleServiceError(c, err, "Could not refresh session")
		return
	}

	utils.SuccessResponse(c, "Token refreshed", response)
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	user, err := h.authService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err, "Profile")
		return
	}

	utils.SuccessResponse(c, "Profile retrieved", user)
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	var request services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), userID, &request)
	if err != nil {
		utils.HandleServiceError(c, err, "Could not update profile")
		return
	}

	utils.SuccessResponse(c, "Profile updated", user)
}

func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	if err := h.authService.DeleteAccount(c.Request.Context(), userID); err != nil {
		h.logger.WithError(err).WithUserID(userID).Error("Account deletion failed")
		utils.HandleServiceError(c, err, "Could not delete account")
		return
	}

	utils.SuccessResponse(c, "Account deleted", nil)
}

// ConvertToDriver upgrades a passenger account. Expects multipart form data
// with the vehicle fields and the driver document file.
func (h *AuthHandler) ConvertToDriver(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		utils.BadRequestResponse(c, "Driver document file is required")
		return
	}

	if fileHeader.Size > utils.MaxDocumentSize {
		utils.BadRequestResponse(c, "Document exceeds size limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}
	defer file.Close()

	request := &services.ConvertToDriverRequest{
		Phone:               c.PostForm("phone"),
		CarModel:            c.PostForm("carModel"),
		CarPlates:           c.PostForm("carPlates"),
		Document:            file,
		DocumentName:        fileHeader.Filename,
		DocumentContentType: fileHeader.Header.Get("Content-Type"),
		DocumentSize:        fileHeader.Size,
	}

	user, err := h.authService.ConvertToDriver(c.Request.Context(), userID, request)
	if err != nil {
		h.logger.WithError(err).WithUserID(userID).Warn("Driver conversion failed")
		utils.HandleServiceError(c, err, "Could not convert account to driver")
		return
	}

	utils.SuccessResponse(c, "Account converted to driver", user)
}
