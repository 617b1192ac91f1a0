package geo

import (
	"math"
	"testing"
)

var paris = Coordinates{Latitude: 48.8566, Longitude: 2.3522}

func TestDistanceZero(t *testing.T) {
	e := NewSyntheticEstimator()

	if got := e.Distance(paris, paris); got != 0 {
		t.Fatalf("expected zero distance for identical points, got %v", got)
	}
}

func TestDistanceSymmetry(t *testing.T) {
	e := NewSyntheticEstimator()

	pairs := []struct {
		a, b Coordinates
	}{
		{paris, Coordinates{Latitude: 45.7640, Longitude: 4.8357}},
		{Coordinates{Latitude: -33.8688, Longitude: 151.2093}, Coordinates{Latitude: 51.5074, Longitude: -0.1278}},
		{Coordinates{Latitude: 0, Longitude: 0}, Coordinates{Latitude: 0, Longitude: 180}},
	}

	for _, pair := range pairs {
		ab := e.Distance(pair.a, pair.b)
		ba := e.Distance(pair.b, pair.a)
		if ab != ba {
			t.Fatalf("distance not symmetric: %v vs %v", ab, ba)
		}
		if ab < 0 {
			t.Fatalf("distance must not be negative, got %v", ab)
		}
	}
}

func TestDistanceKnownValue(t *testing.T) {
	e := NewSyntheticEstimator()

	// One degree of latitude is roughly 111.2 km; 0.009 degrees ~ 1 km.
	north := Coordinates{Latitude: paris.Latitude + 0.009, Longitude: paris.Longitude}

	got := e.Distance(paris, north)
	if math.Abs(got-1.0) > 0.05 {
		t.Fatalf("expected roughly 1 km, got %v", got)
	}
}

func TestEstimateRouteTimeModel(t *testing.T) {
	e := NewSyntheticEstimator()

	lyon := Coordinates{Latitude: 45.7640, Longitude: 4.8357}
	route := e.EstimateRoute(paris, lyon)

	want := int(math.Ceil(route.DistanceKM*3 + 5))
	if route.EstimatedTime != want {
		t.Fatalf("estimated time %d does not match distance %v (want %d)", route.EstimatedTime, route.DistanceKM, want)
	}
	if len(route.Points) == 0 {
		t.Fatal("expected interpolated route points")
	}
	if route.Points[0] != paris || route.Points[len(route.Points)-1] != lyon {
		t.Fatal("route points must start at origin and end at destination")
	}
}

func TestEstimateFareOrdering(t *testing.T) {
	e := NewSyntheticEstimator()

	for _, tier := range []ServiceTier{TierEconomic, TierExecutive} {
		for _, distance := range []float64{0, 1.5, 12.3, 250} {
			fare := e.EstimateFare(distance, tier)

			if fare.Min < 0 || fare.Suggested < 0 || fare.Max < 0 {
				t.Fatalf("tier %s distance %v: negative fare %+v", tier, distance, fare)
			}
			if fare.Min > fare.Suggested || fare.Suggested > fare.Max {
				t.Fatalf("tier %s distance %v: fare bounds out of order %+v", tier, distance, fare)
			}
		}
	}
}

func TestEstimateFareExecutiveCostsMore(t *testing.T) {
	e := NewSyntheticEstimator()

	economic := e.EstimateFare(10, TierEconomic)
	executive := e.EstimateFare(10, TierExecutive)

	if executive.Suggested <= economic.Suggested {
		t.Fatalf("executive fare %v should exceed economic fare %v", executive.Suggested, economic.Suggested)
	}
}

func TestEstimateFareUnknownTierFallsBack(t *testing.T) {
	e := NewSyntheticEstimator()

	unknown := e.EstimateFare(10, ServiceTier("luxury"))
	economic := e.EstimateFare(10, TierEconomic)

	if unknown != economic {
		t.Fatalf("unknown tier should use economic rates, got %+v want %+v", unknown, economic)
	}
}

func TestNearbyDriversFilterAndSort(t *testing.T) {
	e := NewSyntheticEstimator()

	candidates := []DriverCandidate{
		{ID: "far", Location: Coordinates{Latitude: paris.Latitude + 1, Longitude: paris.Longitude}},
		{ID: "close", Location: Coordinates{Latitude: paris.Latitude + 0.009, Longitude: paris.Longitude}},
		{ID: "closest", Location: paris},
		{ID: "mid", Location: Coordinates{Latitude: paris.Latitude + 0.03, Longitude: paris.Longitude}},
	}

	nearby := e.NearbyDrivers(paris, candidates, 10)

	if len(nearby) != 3 {
		t.Fatalf("expected 3 drivers within 10 km, got %d", len(nearby))
	}

	wantOrder := []string{"closest", "close", "mid"}
	for i, want := range wantOrder {
		if nearby[i].ID != want {
			t.Fatalf("position %d: got %s, want %s", i, nearby[i].ID, want)
		}
	}

	for _, driver := range nearby {
		if driver.ETAMinutes < 0 {
			t.Fatalf("driver %s has negative ETA", driver.ID)
		}
	}
}

func TestNearbyDriversEmptyRadius(t *testing.T) {
	e := NewSyntheticEstimator()

	candidates := []DriverCandidate{
		{ID: "far", Location: Coordinates{Latitude: paris.Latitude + 1, Longitude: paris.Longitude}},
	}

	if nearby := e.NearbyDrivers(paris, candidates, 1); len(nearby) != 0 {
		t.Fatalf("expected no drivers within 1 km, got %d", len(nearby))
	}
}
