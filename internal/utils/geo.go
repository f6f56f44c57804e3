package utils

import (
	"math"

	"github.com/tippyhq/tracking/internal/pkg/models"
)

// earthRadiusMeters is the mean Earth radius used by the haversine formula
const earthRadiusMeters = 6371000.0

// GeoPoint represents a geographical point with latitude and longitude
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// DistanceMeters calculates the great-circle distance between two points in
// meters using the haversine formula
func DistanceMeters(point1, point2 GeoPoint) float64 {
	lat1 := point1.Latitude * math.Pi / 180.0
	lon1 := point1.Longitude * math.Pi / 180.0
	lat2 := point2.Latitude * math.Pi / 180.0
	lon2 := point2.Longitude * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// GeoPointFromSample extracts the coordinates of a position sample
func GeoPointFromSample(sample *models.PositionSample) GeoPoint {
	return GeoPoint{
		Latitude:  sample.Latitude,
		Longitude: sample.Longitude,
	}
}
