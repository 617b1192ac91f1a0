// Package geo provides the synthetic route, distance and fare estimation
// used by the trip services. It is pure and stateless; a real routing
// provider can replace SyntheticEstimator behind the Estimator interface
// without touching the trip lifecycle code.
package geo

import (
	"math"
	"math/rand"
)

const earthRadiusKM = 6371.0

// ServiceTier selects the fare rate table.
type ServiceTier string

const (
	TierEconomic  ServiceTier = "economic"
	TierExecutive ServiceTier = "executive"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type RouteEstimate struct {
	DistanceKM    float64       `json:"distance_km"`
	EstimatedTime int           `json:"estimated_time"` // minutes
	Points        []Coordinates `json:"points,omitempty"`
}

type FareEstimate struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Suggested float64 `json:"suggested"`
}

type DriverCandidate struct {
	ID       string      `json:"id"`
	Location Coordinates `json:"location"`
}

type NearbyDriver struct {
	DriverCandidate
	DistanceKM float64 `json:"distance_km"`
	ETAMinutes int     `json:"eta_minutes"`
}

type rateTable struct {
	base  float64
	perKM float64
}

var fareRates = map[ServiceTier]rateTable{
	TierEconomic:  {base: 2.50, perKM: 1.20},
	TierExecutive: {base: 5.00, perKM: 2.10},
}

type Estimator interface {
	Distance(a, b Coordinates) float64
	EstimateRoute(origin, destination Coordinates) RouteEstimate
	EstimateFare(distanceKM float64, tier ServiceTier) FareEstimate
	NearbyDrivers(origin Coordinates, candidates []DriverCandidate, radiusKM float64) []NearbyDriver
}

// SyntheticEstimator implements Estimator with a haversine distance and a
// fixed linear time model. Route points are interpolated, not road-snapped.
type SyntheticEstimator struct{}

func NewSyntheticEstimator() *SyntheticEstimator {
	return &SyntheticEstimator{}
}

// Distance returns the great-circle distance in kilometers, rounded to two
// decimals. Distance(a, a) is exactly zero.
func (e *SyntheticEstimator) Distance(a, b Coordinates) float64 {
	return round2(haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude))
}

func (e *SyntheticEstimator) EstimateRoute(origin, destination Coordinates) RouteEstimate {
	distance := e.Distance(origin, destination)

	return RouteEstimate{
		DistanceKM:    distance,
		EstimatedTime: int(math.Ceil(distance*3 + 5)),
		Points:        interpolatePoints(origin, destination, 8),
	}
}

func (e *SyntheticEstimator) EstimateFare(distanceKM float64, tier ServiceTier) FareEstimate {
	rates, ok := fareRates[tier]
	if !ok {
		rates = fareRates[TierEconomic]
	}

	suggested := round2(rates.base + distanceKM*rates.perKM)

	return FareEstimate{
		Min:       round2(suggested * 0.8),
		Max:       round2(suggested * 1.2),
		Suggested: suggested,
	}
}

// NearbyDrivers filters candidates to those within radiusKM of origin and
// sorts them ascending by distance. The attached ETA is synthetic.
func (e *SyntheticEstimator) NearbyDrivers(origin Coordinates, candidates []DriverCandidate, radiusKM float64) []NearbyDriver {
	nearby := make([]NearbyDriver, 0, len(candidates))

	for _, candidate := range candidates {
		distance := e.Distance(origin, candidate.Location)
		if distance > radiusKM {
			continue
		}

		nearby = append(nearby, NearbyDriver{
			DriverCandidate: candidate,
			DistanceKM:      distance,
			ETAMinutes:      int(math.Ceil(distance*2 + rand.Float64()*2)),
		})
	}

	// Insertion sort keeps the common small result sets cheap.
	for i := 1; i < len(nearby); i++ {
		for j := i; j > 0 && nearby[j].DistanceKM < nearby[j-1].DistanceKM; j-- {
			nearby[j], nearby[j-1] = nearby[j-1], nearby[j]
		}
	}

	return nearby
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lon1Rad := lon1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lon2Rad := lon2 * math.Pi / 180

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}

func interpolatePoints(origin, destination Coordinates, steps int) []Coordinates {
	points := make([]Coordinates, 0, steps+1)

	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		points = append(points, Coordinates{
			Latitude:  origin.Latitude + (destination.Latitude-origin.Latitude)*t,
			Longitude: origin.Longitude + (destination.Longitude-origin.Longitude)*t,
		})
	}

	return points
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
