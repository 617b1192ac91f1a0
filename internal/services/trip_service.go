package services

import (
	"context"
	"errors"
	"fmt"

	"swiftride/internal/apperrors"
	"swiftride/internal/models"
	"swiftride/internal/repositories/interfaces"
	"swiftride/pkg/geo"
	"swiftride/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notifier is an optional push channel for freshly created notifications.
// Delivery is best-effort; the polled notification listings stay the source
// of truth, so a nil Notifier or a failed push loses nothing.
type Notifier interface {
	PushToUser(userID primitive.ObjectID, eventType string, data map[string]interface{})
}

type TripService interface {
	CreateTrip(ctx context.Context, passengerID primitive.ObjectID, request *CreateTripRequest) (primitive.ObjectID, error)
	RespondToTrip(ctx context.Context, driverID, tripID primitive.ObjectID, action string) error
	CompleteTrip(ctx context.Context, tripID primitive.ObjectID) error
	CancelTrip(ctx context.Context, passengerID, tripID primitive.ObjectID) error

	GetTripHistory(ctx context.Context, userID primitive.ObjectID, role models.UserRole) ([]*models.TripWithCounterparty, error)
	ListNotifications(ctx context.Context, userID primitive.ObjectID, role models.UserRole) ([]*models.TripNotification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID primitive.ObjectID) error

	EstimateTrip(ctx context.Context, request *EstimateRequest) (*TripEstimate, error)
}

type tripService struct {
	tripRepo         interfaces.TripRepository
	notificationRepo interfaces.NotificationRepository
	userRepo         interfaces.UserRepository
	estimator        geo.Estimator
	notifier         Notifier
	logger           *logger.Logger
}

func NewTripService(
	tripRepo interfaces.TripRepository,
	notificationRepo interfaces.NotificationRepository,
	userRepo interfaces.UserRepository,
	estimator geo.Estimator,
	notifier Notifier,
	logger *logger.Logger,
) TripService {
	return &tripService{
		tripRepo:         tripRepo,
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		estimator:        estimator,
		notifier:         notifier,
		logger:           logger,
	}
}

const (
	TripActionAccept = "accept"
	TripActionReject = "reject"
)

type CreateTripRequest struct {
	DriverID      string          `json:"driverId" binding:"required"`
	Origin        models.Location `json:"origin" binding:"required"`
	Destination   models.Location `json:"destination" binding:"required"`
	ProposedFare  float64         `json:"proposedFare" binding:"required,gt=0"`
	DistanceKM    float64         `json:"distance"`
	EstimatedTime int             `json:"estimatedTime"`
}

type EstimateRequest struct {
	Origin      models.Location `json:"origin" binding:"required"`
	Destination models.Location `json:"destination" binding:"required"`
	Tier        string          `json:"tier"`
}

type TripEstimate struct {
	Route geo.RouteEstimate `json:"route"`
	Fare  geo.FareEstimate  `json:"fare"`
}

func (s *tripService) CreateTrip(ctx context.Context, passengerID primitive.ObjectID, request *CreateTripRequest) (primitive.ObjectID, error) {
	if request.Origin.Address == "" || request.Destination.Address == "" {
		return primitive.NilObjectID, fmt.Errorf("origin and destination are required: %w", apperrors.ErrValidation)
	}
	if request.ProposedFare <= 0 {
		return primitive.NilObjectID, fmt.Errorf("proposed fare must be positive: %w", apperrors.ErrValidation)
	}

	driverID, err := primitive.ObjectIDFromHex(request.DriverID)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid driver id: %w", apperrors.ErrValidation)
	}

	driver, err := s.userRepo.GetByID(ctx, driverID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if driver.Role != models.UserRoleDriver {
		return primitive.NilObjectID, fmt.Errorf("assigned user is not a driver: %w", apperrors.ErrValidation)
	}

	passenger, err := s.userRepo.GetByID(ctx, passengerID)
	if err != nil {
		return primitive.NilObjectID, err
	}

	distance := request.DistanceKM
	estimatedTime := request.EstimatedTime
	if distance <= 0 {
		route := s.estimator.EstimateRoute(
			coords(request.Origin),
			coords(request.Destination),
		)
		distance = route.DistanceKM
		estimatedTime = route.EstimatedTime
	}

	trip := &models.Trip{
		PassengerID:   passengerID,
		DriverID:      driverID,
		Origin:        request.Origin,
		Destination:   request.Destination,
		ProposedFare:  request.ProposedFare,
		DistanceKM:    distance,
		EstimatedTime: estimatedTime,
	}

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return primitive.NilObjectID, err
	}

	notification := &models.TripNotification{
		TripID:      trip.ID,
		DriverID:    driverID,
		PassengerID: passengerID,
		Type:        models.NotificationTypeTripRequest,
		Title:       "New trip request",
		Message:     fmt.Sprintf("%s requested a trip from %s to %s for %.2f", passenger.Name, trip.Origin.Address, trip.Destination.Address, trip.ProposedFare),
		Trip:        snapshot(trip),
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return primitive.NilObjectID, err
	}

	s.push(driverID, notification)

	s.logger.LogTripEvent(trip.ID, "created", map[string]interface{}{
		"passenger_id": passengerID.Hex(),
		"driver_id":    driverID.Hex(),
		"fare":         trip.ProposedFare,
	})

	return trip.ID, nil
}

// RespondToTrip applies the driver's accept or reject decision. The status
// move is a conditional update keyed on the pending status and the assigned
// driver, so a duplicate or concurrent response observes ErrAlreadyProcessed
// and writes nothing.
func (s *tripService) RespondToTrip(ctx context.Context, driverID, tripID primitive.ObjectID, action string) error {
	var target models.TripStatus
	switch action {
	case TripActionAccept:
		target = models.TripStatusAccepted
	case TripActionReject:
		target = models.TripStatusRejected
	default:
		return fmt.Errorf("action must be accept or reject: %w", apperrors.ErrValidation)
	}

	// The driver is read before the status write: once the trip has moved,
	// the outcome notification is the only remaining write, so a transient
	// lookup failure cannot strand an accepted trip without it.
	driver, err := s.userRepo.GetByID(ctx, driverID)
	if err != nil {
		return err
	}

	trip, err := s.tripRepo.TransitionStatus(ctx, tripID, models.TripStatusPending, target, &driverID)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyProcessed) {
			return s.backfillResponse(ctx, driver, tripID, target)
		}
		return err
	}

	if err := s.finishResponse(ctx, driver, trip, target); err != nil {
		return err
	}

	s.logger.LogTripEvent(trip.ID, action, map[string]interface{}{
		"driver_id": driverID.Hex(),
	})

	return nil
}

// finishResponse retires the driver-facing request notification and writes
// the passenger-facing outcome for an already-transitioned trip.
func (s *tripService) finishResponse(ctx context.Context, driver *models.User, trip *models.Trip, target models.TripStatus) error {
	if err := s.notificationRepo.MarkTripRequestRead(ctx, trip.ID); err != nil {
		// The trip already moved; a stale unread request notification is
		// recoverable and not worth failing the response over.
		s.logger.WithError(err).WithTripID(trip.ID).Warn("Failed to retire trip request notification")
	}

	notificationType := models.NotificationTypeTripAccepted
	title := "Trip accepted"
	message := fmt.Sprintf("%s accepted your trip to %s", driver.Name, trip.Destination.Address)
	if target == models.TripStatusRejected {
		notificationType = models.NotificationTypeTripRejected
		title = "Trip rejected"
		message = fmt.Sprintf("%s rejected your trip to %s", driver.Name, trip.Destination.Address)
	}

	notification := &models.TripNotification{
		TripID:      trip.ID,
		DriverID:    driver.ID,
		PassengerID: trip.PassengerID,
		Type:        notificationType,
		Title:       title,
		Message:     message,
		Trip:        snapshot(trip),
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return err
	}

	s.push(trip.PassengerID, notification)

	return nil
}

// backfillResponse handles a response whose conditional update found nothing
// to move. A genuine duplicate stays rejected; but when an earlier attempt
// moved the trip and then failed before the passenger notification was
// written, the retry completes that write instead of losing it forever.
func (s *tripService) backfillResponse(ctx context.Context, driver *models.User, tripID primitive.ObjectID, target models.TripStatus) error {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return fmt.Errorf("trip %s: %w", tripID.Hex(), apperrors.ErrAlreadyProcessed)
	}
	if trip.DriverID != driver.ID || trip.Status != target {
		return fmt.Errorf("trip %s is %s: %w", tripID.Hex(), trip.Status, apperrors.ErrAlreadyProcessed)
	}

	if _, err := s.notificationRepo.GetTripResponse(ctx, tripID); err == nil {
		return fmt.Errorf("trip %s already answered: %w", tripID.Hex(), apperrors.ErrAlreadyProcessed)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	if err := s.finishResponse(ctx, driver, trip, target); err != nil {
		return err
	}

	s.logger.LogTripEvent(trip.ID, "response-backfilled", map[string]interface{}{
		"driver_id": driver.ID.Hex(),
	})

	return nil
}

func (s *tripService) CompleteTrip(ctx context.Context, tripID primitive.ObjectID) error {
	trip, err := s.tripRepo.TransitionStatus(ctx, tripID, models.TripStatusAccepted, models.TripStatusCompleted, nil)
	if err != nil {
		return err
	}

	s.logger.LogTripEvent(trip.ID, "completed", nil)

	return nil
}

func (s *tripService) CancelTrip(ctx context.Context, passengerID, tripID primitive.ObjectID) error {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.PassengerID != passengerID {
		return fmt.Errorf("trip belongs to another passenger: %w", apperrors.ErrForbidden)
	}

	cancelled, err := s.tripRepo.TransitionStatus(ctx, tripID, models.TripStatusAccepted, models.TripStatusCancelled, nil)
	if err != nil {
		return err
	}

	s.logger.LogTripEvent(cancelled.ID, "cancelled", map[string]interface{}{
		"passenger_id": passengerID.Hex(),
	})

	return nil
}

// GetTripHistory returns the caller's terminal trips, newest completion
// first, each enriched with the counterparty's public profile. The profile is
// joined at read time so the listing never shows stale identity data.
func (s *tripService) GetTripHistory(ctx context.Context, userID primitive.ObjectID, role models.UserRole) ([]*models.TripWithCounterparty, error) {
	trips, err := s.tripRepo.GetHistoryByUser(ctx, userID, role)
	if err != nil {
		return nil, err
	}

	profiles := make(map[primitive.ObjectID]*models.PublicProfile)
	enriched := make([]*models.TripWithCounterparty, 0, len(trips))

	for _, trip := range trips {
		counterpartyID := trip.DriverID
		if role == models.UserRoleDriver {
			counterpartyID = trip.PassengerID
		}

		profile, ok := profiles[counterpartyID]
		if !ok {
			user, err := s.userRepo.GetByID(ctx, counterpartyID)
			if err == nil {
				profile = user.PublicProfile()
			}
			// A deleted counterparty leaves the profile nil; the trip row
			// itself still renders.
			profiles[counterpartyID] = profile
		}

		enriched = append(enriched, &models.TripWithCounterparty{
			Trip:         *trip,
			Counterparty: profile,
		})
	}

	return enriched, nil
}

func (s *tripService) ListNotifications(ctx context.Context, userID primitive.ObjectID, role models.UserRole) ([]*models.TripNotification, error) {
	if role == models.UserRoleDriver {
		return s.notificationRepo.GetUnreadForDriver(ctx, userID)
	}
	return s.notificationRepo.GetUnreadForPassenger(ctx, userID)
}

// MarkNotificationRead is idempotent and silently ignores notifications the
// caller does not own.
func (s *tripService) MarkNotificationRead(ctx context.Context, userID, notificationID primitive.ObjectID) error {
	notification, err := s.notificationRepo.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}

	if notification.Recipient() != userID {
		return nil
	}
	if notification.Read {
		return nil
	}

	return s.notificationRepo.MarkAsRead(ctx, notificationID)
}

func (s *tripService) EstimateTrip(ctx context.Context, request *EstimateRequest) (*TripEstimate, error) {
	tier := geo.ServiceTier(request.Tier)
	if tier == "" {
		tier = geo.TierEconomic
	}

	route := s.estimator.EstimateRoute(coords(request.Origin), coords(request.Destination))
	fare := s.estimator.EstimateFare(route.DistanceKM, tier)

	return &TripEstimate{
		Route: route,
		Fare:  fare,
	}, nil
}

func (s *tripService) push(userID primitive.ObjectID, notification *models.TripNotification) {
	if s.notifier == nil {
		return
	}

	s.notifier.PushToUser(userID, string(notification.Type), map[string]interface{}{
		"notification_id": notification.ID.Hex(),
		"trip_id":         notification.TripID.Hex(),
		"title":           notification.Title,
		"message":         notification.Message,
	})
}

func snapshot(trip *models.Trip) models.TripSnapshot {
	return models.TripSnapshot{
		Origin:       trip.Origin,
		Destination:  trip.Destination,
		ProposedFare: trip.ProposedFare,
	}
}

func coords(location models.Location) geo.Coordinates {
	return geo.Coordinates{
		Latitude:  location.Coordinates.Latitude,
		Longitude: location.Coordinates.Longitude,
	}
}
