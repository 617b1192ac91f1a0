package utils

import "time"

// Application Constants
const (
	AppName    = "SwiftRide"
	AppVersion = "1.0.0"

	// Authentication
	JWTAccessTokenTTL  = 7 * 24 * time.Hour
	JWTRefreshTokenTTL = 30 * 24 * time.Hour
	PasswordMinLength  = 8
	PasswordMaxLength  = 128

	// Trips
	DefaultSearchRadiusKM = 10.0
	MaxSearchRadiusKM     = 50.0
	MinProposedFare       = 0.01

	// Presence
	DefaultStalenessWindow = 5 * time.Minute

	// File upload
	MaxDocumentSize = 10 * 1024 * 1024 // 10MB
)

// Response status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// User-facing error messages
const (
	ErrValidationFailed   = "Validation failed"
	ErrInternalServer     = "An unexpected error occurred"
	ErrUnauthorized       = "Authentication required"
	ErrForbidden          = "You do not have access to this resource"
	ErrInvalidCredentials = "Invalid email or password"
	ErrEmailTaken         = "An account with this email already exists"
	ErrTripProcessed      = "Trip not found or already processed"
)
