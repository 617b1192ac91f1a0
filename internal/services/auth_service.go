package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"swiftride/internal/apperrors"
	"swiftride/internal/models"
	"swiftride/internal/repositories/interfaces"
	"swiftride/internal/utils"
	"swiftride/pkg/logger"
	"swiftride/pkg/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, request *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, request *LoginRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)

	GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, request *UpdateProfileRequest) (*models.User, error)
	DeleteAccount(ctx context.Context, userID primitive.ObjectID) error

	ConvertToDriver(ctx context.Context, userID primitive.ObjectID, request *ConvertToDriverRequest) (*models.User, error)
}

type authService struct {
	userRepo         interfaces.UserRepository
	tripRepo         interfaces.TripRepository
	notificationRepo interfaces.NotificationRepository
	documentStorage  storage.Provider
	jwtSecret        string
	logger           *logger.Logger
}

func NewAuthService(
	userRepo interfaces.UserRepository,
	tripRepo interfaces.TripRepository,
	notificationRepo interfaces.NotificationRepository,
	documentStorage storage.Provider,
	jwtSecret string,
	logger *logger.Logger,
) AuthService {
	return &authService{
		userRepo:         userRepo,
		tripRepo:         tripRepo,
		notificationRepo: notificationRepo,
		documentStorage:  documentStorage,
		jwtSecret:        jwtSecret,
		logger:           logger,
	}
}

type RegisterRequest struct {
	Name             string                   `json:"name" binding:"required"`
	Email            string                   `json:"email" binding:"required,email"`
	Password         string                   `json:"password" binding:"required,min=8"`
	Phone            string                   `json:"phone"`
	Role             string                   `json:"role" binding:"required,oneof=passenger driver"`
	Vehicle          *models.VehicleInfo      `json:"vehicle"`
	EmergencyContact *models.EmergencyContact `json:"emergency_contact"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Name             string                   `json:"name"`
	Phone            string                   `json:"phone"`
	EmergencyContact *models.EmergencyContact `json:"emergency_contact"`
	Vehicle          *models.VehicleInfo      `json:"vehicle"`
}

type ConvertToDriverRequest struct {
	Phone     string
	CarModel  string
	CarPlates string

	Document            io.Reader
	DocumentName        string
	DocumentContentType string
	DocumentSize        int64
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
}

func (s *authService) Register(ctx context.Context, request *RegisterRequest) (*AuthResponse, error) {
	role := models.UserRole(request.Role)
	if role != models.UserRolePassenger && role != models.UserRoleDriver {
		return nil, fmt.Errorf("role must be passenger or driver: %w", apperrors.ErrValidation)
	}
	if len(request.Password) < utils.PasswordMinLength {
		return nil, fmt.Errorf("password too short: %w", apperrors.ErrValidation)
	}
	if role == models.UserRoleDriver && request.Vehicle == nil {
		return nil, fmt.Errorf("driver registration requires vehicle info: %w", apperrors.ErrValidation)
	}

	hashed, err := hashPassword(request.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:             request.Name,
		Email:            strings.ToLower(strings.TrimSpace(request.Email)),
		Phone:            request.Phone,
		Password:         hashed,
		Role:             role,
		IsActive:         true,
		Vehicle:          request.Vehicle,
		EmergencyContact: request.EmergencyContact,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WithUserID(user.ID).WithField("role", string(user.Role)).Info("User registered")

	return s.buildAuthResponse(user)
}

func (s *authService) Login(ctx context.Context, request *LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(request.Email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// A missing account and a wrong password look the same to the caller.
		return nil, fmt.Errorf("invalid credentials: %w", apperrors.ErrUnauthorized)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("account deactivated: %w", apperrors.ErrForbidden)
	}

	if !verifyPassword(request.Password, user.Password) {
		return nil, fmt.Errorf("invalid credentials: %w", apperrors.ErrUnauthorized)
	}

	s.logger.WithUserID(user.ID).Info("User logged in")

	return s.buildAuthResponse(user)
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := utils.ValidateToken(refreshToken, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("refresh failed: %w", apperrors.ErrUnauthorized)
	}

	// Re-read the user so a role change or deletion invalidates old refresh
	// tokens' claims.
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, fmt.Errorf("account deactivated: %w", apperrors.ErrForbidden)
	}

	return s.buildAuthResponse(user)
}

func (s *authService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *authService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, request *UpdateProfileRequest) (*models.User, error) {
	updates := map[string]interface{}{}

	if request.Name != "" {
		updates["name"] = request.Name
	}
	if request.Phone != "" {
		updates["phone"] = request.Phone
	}
	if request.EmergencyContact != nil {
		updates["emergency_contact"] = request.EmergencyContact
	}
	if request.Vehicle != nil {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user.Role != models.UserRoleDriver {
			return nil, fmt.Errorf("only drivers can update vehicle info: %w", apperrors.ErrForbidden)
		}
		updates["vehicle"] = request.Vehicle
	}

	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update: %w", apperrors.ErrValidation)
	}

	if err := s.userRepo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}

	return s.userRepo.GetByID(ctx, userID)
}

// DeleteAccount removes the user and everything referencing them: trips in
// either role and notifications addressed to or produced for them.
func (s *authService) DeleteAccount(ctx context.Context, userID primitive.ObjectID) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return err
	}

	if err := s.notificationRepo.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	if err := s.tripRepo.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}

	s.logger.WithUserID(userID).Info("Account deleted with cascade")

	return nil
}

func (s *authService) ConvertToDriver(ctx context.Context, userID primitive.ObjectID, request *ConvertToDriverRequest) (*models.User, error) {
	if request.CarModel == "" || request.CarPlates == "" {
		return nil, fmt.Errorf("car model and plates are required: %w", apperrors.ErrValidation)
	}
	if request.Document == nil {
		return nil, fmt.Errorf("driver document is required: %w", apperrors.ErrValidation)
	}
	if request.DocumentSize > utils.MaxDocumentSize {
		return nil, fmt.Errorf("document exceeds size limit: %w", apperrors.ErrValidation)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == models.UserRoleDriver {
		return nil, fmt.Errorf("user is already a driver: %w", apperrors.ErrConflict)
	}

	key := fmt.Sprintf("driver-documents/%s/%s%s", userID.Hex(), uuid.New().String(), path.Ext(request.DocumentName))

	upload, err := s.documentStorage.Upload(ctx, &storage.UploadRequest{
		Key:         key,
		Reader:      request.Document,
		ContentType: request.DocumentContentType,
		Size:        request.DocumentSize,
		Metadata:    map[string]string{"user_id": userID.Hex()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store driver document: %w", err)
	}

	updates := map[string]interface{}{
		"role": models.UserRoleDriver,
		"vehicle": &models.VehicleInfo{
			CarModel:    request.CarModel,
			CarPlates:   request.CarPlates,
			DocumentURL: upload.URL,
		},
	}
	if request.Phone != "" {
		updates["phone"] = request.Phone
	}

	if err := s.userRepo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}

	s.logger.WithUserID(userID).Info("User converted to driver")

	return s.userRepo.GetByID(ctx, userID)
}

func (s *authService) buildAuthResponse(user *models.User) (*AuthResponse, error) {
	pair, err := utils.GenerateTokenPair(user.ID, string(user.Role), user.Email, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
