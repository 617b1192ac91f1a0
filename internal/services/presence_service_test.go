package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"swiftride/internal/apperrors"
	"swiftride/internal/models"
	"swiftride/pkg/geo"
)

func newPresenceFixture(t *testing.T) (PresenceService, *fakeUserRepo) {
	t.Helper()

	userRepo := newFakeUserRepo()
	service := NewPresenceService(userRepo, nil, geo.NewSyntheticEstimator(), 5*time.Minute, testLogger(t))
	return service, userRepo
}

func addDriver(t *testing.T, repo *fakeUserRepo, name string) *models.User {
	t.Helper()

	driver := &models.User{
		Name:     name,
		Email:    name + "@example.com",
		Role:     models.UserRoleDriver,
		IsActive: true,
	}
	if err := repo.Create(context.Background(), driver); err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}
	return driver
}

func TestSetOnlineAppearsInConnectedList(t *testing.T) {
	service, userRepo := newPresenceFixture(t)
	ctx := context.Background()
	driver := addDriver(t, userRepo, "bob")

	location := models.Coordinates{Latitude: 48.8566, Longitude: 2.3522}
	if err := service.SetOnline(ctx, driver.ID, location); err != nil {
		t.Fatalf("set online failed: %v", err)
	}

	connected, err := service.ListConnected(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(connected) != 1 {
		t.Fatalf("expected one connected driver, got %d", len(connected))
	}
	if connected[0].ID != driver.ID {
		t.Fatalf("wrong driver listed: %s", connected[0].ID.Hex())
	}
	if connected[0].CurrentLocation == nil || *connected[0].CurrentLocation != location {
		t.Fatalf("expected reported location, got %+v", connected[0].CurrentLocation)
	}
}

func TestSetOfflineRemovesFromListButKeepsLocation(t *testing.T) {
	service, userRepo := newPresenceFixture(t)
	ctx := context.Background()
	driver := addDriver(t, userRepo, "bob")

	location := models.Coordinates{Latitude: 48.8566, Longitude: 2.3522}
	if err := service.SetOnline(ctx, driver.ID, location); err != nil {
		t.Fatalf("set online failed: %v", err)
	}
	if err := service.SetOffline(ctx, driver.ID); err != nil {
		t.Fatalf("set offline failed: %v", err)
	}

	connected, err := service.ListConnected(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(connected) != 0 {
		t.Fatalf("offline driver must not be listed, got %d", len(connected))
	}

	stored, err := userRepo.GetByID(ctx, driver.ID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if stored.CurrentLocation == nil || *stored.CurrentLocation != location {
		t.Fatal("last-seen location should be retained after disconnect")
	}
}

func TestListConnectedFiltersStaleHeartbeats(t *testing.T) {
	service, userRepo := newPresenceFixture(t)
	ctx := context.Background()

	fresh := addDriver(t, userRepo, "fresh")
	stale := addDriver(t, userRepo, "stale")

	location := models.Coordinates{Latitude: 1, Longitude: 1}
	if err := service.SetOnline(ctx, fresh.ID, location); err != nil {
		t.Fatalf("set online failed: %v", err)
	}
	if err := service.SetOnline(ctx, stale.ID, location); err != nil {
		t.Fatalf("set online failed: %v", err)
	}

	// Backdate the second driver's heartbeat past the staleness window. The
	// stored is_online flag stays true; only the read-time filter hides it.
	userRepo.mu.Lock()
	old := time.Now().Add(-6 * time.Minute)
	userRepo.users[stale.ID].LastOnlineUpdate = &old
	userRepo.mu.Unlock()

	connected, err := service.ListConnected(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(connected) != 1 || connected[0].ID != fresh.ID {
		t.Fatalf("expected only the fresh driver, got %d entries", len(connected))
	}
}

func newCachedPresenceFixture(t *testing.T) (PresenceService, *fakeUserRepo, *fakeCache) {
	t.Helper()

	userRepo := newFakeUserRepo()
	cache := newFakeCache()
	service := NewPresenceService(userRepo, cache, geo.NewSyntheticEstimator(), 5*time.Minute, testLogger(t))
	return service, userRepo, cache
}

func TestListConnectedServesFromCache(t *testing.T) {
	service, userRepo, _ := newCachedPresenceFixture(t)
	ctx := context.Background()
	driver := addDriver(t, userRepo, "bob")

	location := models.Coordinates{Latitude: 48.8566, Longitude: 2.3522}
	if err := service.SetOnline(ctx, driver.ID, location); err != nil {
		t.Fatalf("set online failed: %v", err)
	}

	// Flip the stored flag behind the cache's back: a listing that still sees
	// the driver can only have come from redis.
	userRepo.mu.Lock()
	userRepo.users[driver.ID].IsOnline = false
	userRepo.mu.Unlock()

	connected, err := service.ListConnected(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(connected) != 1 || connected[0].ID != driver.ID {
		t.Fatalf("expected the cached driver, got %d entries", len(connected))
	}
	if connected[0].CurrentLocation == nil || *connected[0].CurrentLocation != location {
		t.Fatalf("cached view should carry the reported location, got %+v", connected[0].CurrentLocation)
	}
}

func TestSetOfflineClearsCacheEntry(t *testing.T) {
	service, userRepo, cache := newCachedPresenceFixture(t)
	ctx := context.Background()
	driver := addDriver(t, userRepo, "bob")

	if err := service.SetOnline(ctx, driver.ID, models.Coordinates{Latitude: 1, Longitude: 1}); err != nil {
		t.Fatalf("set online failed: %v", err)
	}
	if err := service.SetOffline(ctx, driver.ID); err != nil {
		t.Fatalf("set offline failed: %v", err)
	}

	keys, err := cache.Keys(ctx, presenceKeyPattern)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("disconnect must drop the presence entry, %d keys remain", len(keys))
	}
	connected, err := service.ListConnected(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(connected) != 0 {
		t.Fatalf("offline driver must not be listed, got %d", len(connected))
	}
}

func TestListConnectedExpiredEntryHidesDriver(t *testing.T) {
	service, userRepo, cache := newCachedPresenceFixture(t)
	ctx := context.Background()
	driver := addDriver(t, userRepo, "bob")

	if err := service.SetOnline(ctx, driver.ID, models.Coordinates{Latitude: 1, Longitude: 1}); err != nil {
		t.Fatalf("set online failed: %v", err)
	}

	// Lapse both the cache TTL and the stored heartbeat, as a dead session
	// would after the window elapses.
	cache.expire(presenceKey(driver.ID))
	userRepo.mu.Lock()
	old := time.Now().Add(-6 * time.Minute)
	userRepo.users[driver.ID].LastOnlineUpdate = &old
	userRepo.mu.Unlock()

	connected, err := service.ListConnected(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(connected) != 0 {
		t.Fatalf("lapsed heartbeat must drop out of the view, got %d", len(connected))
	}
}

func TestListConnectedFlushedCacheFallsBack(t *testing.T) {
	service, userRepo, cache := newCachedPresenceFixture(t)
	ctx := context.Background()
	driver := addDriver(t, userRepo, "bob")

	if err := service.SetOnline(ctx, driver.ID, models.Coordinates{Latitude: 1, Longitude: 1}); err != nil {
		t.Fatalf("set online failed: %v", err)
	}

	// A flushed redis loses the entry while the database heartbeat is fresh;
	// the listing must still find the driver.
	if err := cache.Delete(ctx, presenceKey(driver.ID)); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	connected, err := service.ListConnected(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(connected) != 1 || connected[0].ID != driver.ID {
		t.Fatalf("expected the database fallback to list the driver, got %d entries", len(connected))
	}
}

func TestSetOnlineRejectsPassenger(t *testing.T) {
	service, userRepo := newPresenceFixture(t)
	ctx := context.Background()

	passenger := &models.User{Name: "alice", Email: "alice@example.com", Role: models.UserRolePassenger, IsActive: true}
	if err := userRepo.Create(ctx, passenger); err != nil {
		t.Fatalf("failed to create passenger: %v", err)
	}

	err := service.SetOnline(ctx, passenger.ID, models.Coordinates{Latitude: 1, Longitude: 1})
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected forbidden for passenger, got %v", err)
	}
}

func TestSetOnlineRejectsDeactivatedDriver(t *testing.T) {
	service, userRepo := newPresenceFixture(t)
	ctx := context.Background()
	driver := addDriver(t, userRepo, "bob")

	userRepo.mu.Lock()
	userRepo.users[driver.ID].IsActive = false
	userRepo.mu.Unlock()

	err := service.SetOnline(ctx, driver.ID, models.Coordinates{Latitude: 1, Longitude: 1})
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected forbidden for deactivated driver, got %v", err)
	}
}

func TestNearbyDriversSortsByDistance(t *testing.T) {
	service, userRepo := newPresenceFixture(t)
	ctx := context.Background()

	origin := models.Coordinates{Latitude: 48.8566, Longitude: 2.3522}

	near := addDriver(t, userRepo, "near")
	far := addDriver(t, userRepo, "far")
	offline := addDriver(t, userRepo, "offline")

	if err := service.SetOnline(ctx, near.ID, models.Coordinates{Latitude: origin.Latitude + 0.009, Longitude: origin.Longitude}); err != nil {
		t.Fatalf("set online failed: %v", err)
	}
	if err := service.SetOnline(ctx, far.ID, models.Coordinates{Latitude: origin.Latitude + 0.05, Longitude: origin.Longitude}); err != nil {
		t.Fatalf("set online failed: %v", err)
	}
	_ = offline // never connects

	nearby, err := service.NearbyDrivers(ctx, origin, 10)
	if err != nil {
		t.Fatalf("nearby failed: %v", err)
	}
	if len(nearby) != 2 {
		t.Fatalf("expected two nearby drivers, got %d", len(nearby))
	}
	if nearby[0].ID != near.ID.Hex() || nearby[1].ID != far.ID.Hex() {
		t.Fatalf("drivers not sorted by distance: %s, %s", nearby[0].ID, nearby[1].ID)
	}
}
