package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"swiftride/internal/apperrors"
	"swiftride/internal/models"
	"swiftride/internal/repositories/interfaces"
	"swiftride/pkg/geo"
	"swiftride/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PresenceService interface {
	SetOnline(ctx context.Context, driverID primitive.ObjectID, location models.Coordinates) error
	SetOffline(ctx context.Context, driverID primitive.ObjectID) error
	ListConnected(ctx context.Context) ([]*ConnectedDriver, error)
	NearbyDrivers(ctx context.Context, origin models.Coordinates, radiusKM float64) ([]geo.NearbyDriver, error)
}

// ConnectedDriver is the public presence view: identity plus last-known
// location and heartbeat time, never credentials or contact internals.
type ConnectedDriver struct {
	ID               primitive.ObjectID  `json:"id"`
	Name             string              `json:"name"`
	Vehicle          *models.VehicleInfo `json:"vehicle,omitempty"`
	CurrentLocation  *models.Coordinates `json:"current_location,omitempty"`
	LastOnlineUpdate *time.Time          `json:"last_online_update,omitempty"`
}

type presenceService struct {
	userRepo        interfaces.UserRepository
	cache           CacheService
	estimator       geo.Estimator
	stalenessWindow time.Duration
	logger          *logger.Logger
}

func NewPresenceService(
	userRepo interfaces.UserRepository,
	cache CacheService,
	estimator geo.Estimator,
	stalenessWindow time.Duration,
	logger *logger.Logger,
) PresenceService {
	return &presenceService{
		userRepo:        userRepo,
		cache:           cache,
		estimator:       estimator,
		stalenessWindow: stalenessWindow,
		logger:          logger,
	}
}

func (s *presenceService) SetOnline(ctx context.Context, driverID primitive.ObjectID, location models.Coordinates) error {
	driver, err := s.requireDriver(ctx, driverID)
	if err != nil {
		return err
	}

	if err := s.userRepo.SetPresence(ctx, driverID, true, &location); err != nil {
		return err
	}

	// The redis entry doubles as a heartbeat: its TTL matches the staleness
	// window, so an abandoned session expires without a disconnect call. The
	// cached value is the full presence view, which lets ListConnected serve
	// from redis without touching the users collection.
	if s.cache != nil {
		now := time.Now()
		view := &ConnectedDriver{
			ID:               driverID,
			Name:             driver.Name,
			Vehicle:          driver.Vehicle,
			CurrentLocation:  &location,
			LastOnlineUpdate: &now,
		}
		s.cache.Set(ctx, presenceKey(driverID), view, s.stalenessWindow)
	}

	s.logger.WithUserID(driverID).Debug("Driver connected")

	return nil
}

func (s *presenceService) SetOffline(ctx context.Context, driverID primitive.ObjectID) error {
	if _, err := s.requireDriver(ctx, driverID); err != nil {
		return err
	}

	// Location is intentionally retained for last-seen display.
	if err := s.userRepo.SetPresence(ctx, driverID, false, nil); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.Delete(ctx, presenceKey(driverID))
	}

	s.logger.WithUserID(driverID).Debug("Driver disconnected")

	return nil
}

// ListConnected filters staleness at read time: a driver whose client stopped
// heartbeating drops out of this view once the window elapses even though the
// stored is_online flag still reads true. Nothing flips the flag server-side.
// Redis is the fast path; the TTL on each presence entry enforces the
// staleness window, so any key still present belongs to a live session.
func (s *presenceService) ListConnected(ctx context.Context) ([]*ConnectedDriver, error) {
	if s.cache != nil {
		connected, err := s.listConnectedFromCache(ctx)
		switch {
		case err != nil:
			s.logger.WithError(err).Warn("Presence cache scan failed, falling back to database")
		case len(connected) > 0:
			return connected, nil
		}
		// An empty scan falls through too: after a redis flush the database
		// still knows which heartbeats are fresh.
	}

	since := time.Now().Add(-s.stalenessWindow)

	drivers, err := s.userRepo.GetConnectedDrivers(ctx, since)
	if err != nil {
		return nil, err
	}

	connected := make([]*ConnectedDriver, 0, len(drivers))
	for _, driver := range drivers {
		connected = append(connected, &ConnectedDriver{
			ID:               driver.ID,
			Name:             driver.Name,
			Vehicle:          driver.Vehicle,
			CurrentLocation:  driver.CurrentLocation,
			LastOnlineUpdate: driver.LastOnlineUpdate,
		})
	}

	return connected, nil
}

func (s *presenceService) listConnectedFromCache(ctx context.Context) ([]*ConnectedDriver, error) {
	keys, err := s.cache.Keys(ctx, presenceKeyPattern)
	if err != nil {
		return nil, err
	}

	connected := make([]*ConnectedDriver, 0, len(keys))
	for _, key := range keys {
		var driver ConnectedDriver
		if err := s.cache.Get(ctx, key, &driver); err != nil {
			// The key expired between the scan and the read.
			continue
		}
		connected = append(connected, &driver)
	}

	sort.Slice(connected, func(i, j int) bool {
		return timeOrNow(connected[i].LastOnlineUpdate).After(timeOrNow(connected[j].LastOnlineUpdate))
	})

	return connected, nil
}

func timeOrNow(t *time.Time) time.Time {
	if t == nil {
		return time.Now()
	}
	return *t
}

func (s *presenceService) NearbyDrivers(ctx context.Context, origin models.Coordinates, radiusKM float64) ([]geo.NearbyDriver, error) {
	connected, err := s.ListConnected(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]geo.DriverCandidate, 0, len(connected))
	for _, driver := range connected {
		if driver.CurrentLocation == nil {
			continue
		}
		candidates = append(candidates, geo.DriverCandidate{
			ID: driver.ID.Hex(),
			Location: geo.Coordinates{
				Latitude:  driver.CurrentLocation.Latitude,
				Longitude: driver.CurrentLocation.Longitude,
			},
		})
	}

	return s.estimator.NearbyDrivers(geo.Coordinates{
		Latitude:  origin.Latitude,
		Longitude: origin.Longitude,
	}, candidates, radiusKM), nil
}

func (s *presenceService) requireDriver(ctx context.Context, driverID primitive.ObjectID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.UserRoleDriver {
		return nil, fmt.Errorf("presence is driver-only: %w", apperrors.ErrForbidden)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account deactivated: %w", apperrors.ErrForbidden)
	}
	return user, nil
}

const presenceKeyPattern = "presence:driver:*"

func presenceKey(driverID primitive.ObjectID) string {
	return fmt.Sprintf("presence:driver:%s", driverID.Hex())
}
