package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"swiftride/internal/apperrors"
	"swiftride/internal/models"
	"swiftride/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	l, err := logger.New(&logger.Config{Level: "error", Format: "text"})
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	return l
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return fmt.Errorf("email taken: %w", apperrors.ErrConflict)
		}
	}

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = time.Now()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	if name, ok := updates["name"].(string); ok {
		user.Name = name
	}
	if phone, ok := updates["phone"].(string); ok {
		user.Phone = phone
	}
	if role, ok := updates["role"].(models.UserRole); ok {
		user.Role = role
	}
	if vehicle, ok := updates["vehicle"].(*models.VehicleInfo); ok {
		user.Vehicle = vehicle
	}
	user.UpdatedAt = time.Now()
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("email %s: %w", email, apperrors.ErrNotFound)
}

func (r *fakeUserRepo) SetPresence(ctx context.Context, id primitive.ObjectID, online bool, location *models.Coordinates) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	user.IsOnline = online
	now := time.Now()
	user.LastOnlineUpdate = &now
	if location != nil {
		user.CurrentLocation = location
	}
	return nil
}

func (r *fakeUserRepo) GetConnectedDrivers(ctx context.Context, since time.Time) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var drivers []*models.User
	for _, user := range r.users {
		if user.Role != models.UserRoleDriver || !user.IsActive || !user.IsOnline {
			continue
		}
		if user.LastOnlineUpdate == nil || user.LastOnlineUpdate.Before(since) {
			continue
		}
		copied := *user
		drivers = append(drivers, &copied)
	}

	// Freshest heartbeat first, like the store query.
	sort.Slice(drivers, func(i, j int) bool {
		return drivers[i].LastOnlineUpdate.After(*drivers[j].LastOnlineUpdate)
	})

	return drivers, nil
}

// flakyUserRepo fails a set number of GetByID calls before recovering, the
// way a store does during a brief outage.
type flakyUserRepo struct {
	*fakeUserRepo
	failMu   sync.Mutex
	failures int
}

func (r *flakyUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.failMu.Lock()
	remaining := r.failures
	if remaining > 0 {
		r.failures--
	}
	r.failMu.Unlock()

	if remaining > 0 {
		return nil, fmt.Errorf("user store unavailable")
	}
	return r.fakeUserRepo.GetByID(ctx, id)
}

// fakeTripRepo is an in-memory TripRepository whose TransitionStatus matches
// the conditional-write contract: the status move only happens when the
// stored status still equals the expected prior one.
type fakeTripRepo struct {
	mu    sync.Mutex
	trips map[primitive.ObjectID]*models.Trip
}

func newFakeTripRepo() *fakeTripRepo {
	return &fakeTripRepo{trips: make(map[primitive.ObjectID]*models.Trip)}
}

func (r *fakeTripRepo) Create(ctx context.Context, trip *models.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if trip.ID.IsZero() {
		trip.ID = primitive.NewObjectID()
	}
	trip.Status = models.TripStatusPending
	trip.CreatedAt = time.Now()
	copied := *trip
	r.trips[trip.ID] = &copied
	return nil
}

func (r *fakeTripRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	trip, ok := r.trips[id]
	if !ok {
		return nil, fmt.Errorf("trip %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	copied := *trip
	return &copied, nil
}

func (r *fakeTripRepo) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.TripStatus, expectDriver *primitive.ObjectID) (*models.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	trip, ok := r.trips[id]
	if !ok || trip.Status != from {
		return nil, fmt.Errorf("trip %s: %w", id.Hex(), apperrors.ErrAlreadyProcessed)
	}
	if expectDriver != nil && trip.DriverID != *expectDriver {
		return nil, fmt.Errorf("trip %s: %w", id.Hex(), apperrors.ErrAlreadyProcessed)
	}

	now := time.Now()
	trip.Status = to
	trip.UpdatedAt = now
	switch to {
	case models.TripStatusAccepted:
		trip.AcceptedAt = &now
	case models.TripStatusRejected:
		trip.RejectedAt = &now
	case models.TripStatusCompleted:
		trip.CompletedAt = &now
	case models.TripStatusCancelled:
		trip.CancelledAt = &now
	}

	copied := *trip
	return &copied, nil
}

func (r *fakeTripRepo) GetHistoryByUser(ctx context.Context, userID primitive.ObjectID, role models.UserRole) ([]*models.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var trips []*models.Trip
	for _, trip := range r.trips {
		if trip.Status != models.TripStatusCompleted && trip.Status != models.TripStatusCancelled {
			continue
		}
		owner := trip.PassengerID
		if role == models.UserRoleDriver {
			owner = trip.DriverID
		}
		if owner != userID {
			continue
		}
		copied := *trip
		trips = append(trips, &copied)
	}

	// Newest completion first, creation time as tiebreaker; trips without a
	// completion timestamp (cancelled) sort last, like the store query.
	sort.Slice(trips, func(i, j int) bool {
		ci, cj := timeOrZero(trips[i].CompletedAt), timeOrZero(trips[j].CompletedAt)
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return trips[i].CreatedAt.After(trips[j].CreatedAt)
	})

	return trips, nil
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (r *fakeTripRepo) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, trip := range r.trips {
		if trip.PassengerID == userID || trip.DriverID == userID {
			delete(r.trips, id)
		}
	}
	return nil
}

// fakeNotificationRepo is an in-memory NotificationRepository.
type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications map[primitive.ObjectID]*models.TripNotification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: make(map[primitive.ObjectID]*models.TripNotification)}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, notification *models.TripNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Mirrors the store's unique response index: one outcome per trip.
	if notification.Type == models.NotificationTypeTripAccepted || notification.Type == models.NotificationTypeTripRejected {
		for _, existing := range r.notifications {
			if existing.TripID == notification.TripID &&
				(existing.Type == models.NotificationTypeTripAccepted || existing.Type == models.NotificationTypeTripRejected) {
				return fmt.Errorf("response already recorded for trip %s: %w", notification.TripID.Hex(), apperrors.ErrAlreadyProcessed)
			}
		}
	}

	if notification.ID.IsZero() {
		notification.ID = primitive.NewObjectID()
	}
	notification.CreatedAt = time.Now()
	copied := *notification
	r.notifications[notification.ID] = &copied
	return nil
}

func (r *fakeNotificationRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.TripNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	notification, ok := r.notifications[id]
	if !ok {
		return nil, fmt.Errorf("notification %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	copied := *notification
	return &copied, nil
}

func (r *fakeNotificationRepo) GetUnreadForDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.TripNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.TripNotification
	for _, n := range r.notifications {
		if n.DriverID == driverID && n.Type == models.NotificationTypeTripRequest && !n.Read {
			copied := *n
			result = append(result, &copied)
		}
	}
	return sortNewestFirst(result), nil
}

func (r *fakeNotificationRepo) GetUnreadForPassenger(ctx context.Context, passengerID primitive.ObjectID) ([]*models.TripNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.TripNotification
	for _, n := range r.notifications {
		if n.PassengerID != passengerID || n.Read {
			continue
		}
		if n.Type == models.NotificationTypeTripAccepted || n.Type == models.NotificationTypeTripRejected {
			copied := *n
			result = append(result, &copied)
		}
	}
	return sortNewestFirst(result), nil
}

func sortNewestFirst(notifications []*models.TripNotification) []*models.TripNotification {
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications
}

func (r *fakeNotificationRepo) GetTripResponse(ctx context.Context, tripID primitive.ObjectID) (*models.TripNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.notifications {
		if n.TripID != tripID {
			continue
		}
		if n.Type == models.NotificationTypeTripAccepted || n.Type == models.NotificationTypeTripRejected {
			copied := *n
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("response for trip %s: %w", tripID.Hex(), apperrors.ErrNotFound)
}

func (r *fakeNotificationRepo) MarkAsRead(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	notification, ok := r.notifications[id]
	if !ok {
		return fmt.Errorf("notification %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	if !notification.Read {
		now := time.Now()
		notification.Read = true
		notification.ReadAt = &now
	}
	return nil
}

func (r *fakeNotificationRepo) MarkTripRequestRead(ctx context.Context, tripID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, n := range r.notifications {
		if n.TripID == tripID && n.Type == models.NotificationTypeTripRequest && !n.Read {
			n.Read = true
			n.ReadAt = &now
		}
	}
	return nil
}

func (r *fakeNotificationRepo) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, n := range r.notifications {
		if n.PassengerID == userID || n.DriverID == userID {
			delete(r.notifications, id)
		}
	}
	return nil
}

func (r *fakeNotificationRepo) countByType(notificationType models.TripNotificationType) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, n := range r.notifications {
		if n.Type == notificationType {
			count++
		}
	}
	return count
}

// fakeCache is an in-memory CacheService with real TTL expiry, so presence
// tests can exercise the redis fast path without a redis server.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]fakeCacheEntry
}

type fakeCacheEntry struct {
	data      []byte
	expiresAt time.Time
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]fakeCacheEntry)}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return fmt.Errorf("cache key %s: %w", key, apperrors.ErrNotFound)
	}
	return json.Unmarshal(entry.data, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = fakeCacheEntry{data: data, expiresAt: time.Now().Add(expiration)}
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

func (c *fakeCache) Keys(ctx context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var keys []string
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// expire backdates a key's TTL so tests can simulate a lapsed heartbeat.
func (c *fakeCache) expire(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.expiresAt = time.Now().Add(-time.Second)
		c.entries[key] = entry
	}
}

// recordingNotifier captures pushed events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []pushedEvent
}

type pushedEvent struct {
	UserID    primitive.ObjectID
	EventType string
}

func (n *recordingNotifier) PushToUser(userID primitive.ObjectID, eventType string, data map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, pushedEvent{UserID: userID, EventType: eventType})
}
