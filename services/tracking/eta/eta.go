// Package eta derives distance and arrival estimates from raw positions.
// All functions are pure and deterministic; they touch no network or device
// state so they can be unit tested standalone.
package eta

import (
	"math"
	"time"

	"github.com/tippyhq/tracking/internal/pkg/models"
	"github.com/tippyhq/tracking/internal/utils"
)

// UrbanFallbackSpeed is the assumed travel speed in m/s (~15 km/h) used when
// the reporting device supplies no usable speed.
const UrbanFallbackSpeed = 4.17

// Distance returns the great-circle distance between two points in meters
func Distance(a, b utils.GeoPoint) float64 {
	return utils.DistanceMeters(a, b)
}

// Minutes converts a distance to an ETA in whole minutes. A present,
// positive speed (m/s) is used directly; otherwise the urban fallback speed
// applies. The result is rounded to the nearest minute with a floor of one
// minute: an ETA of zero or less is never reported.
func Minutes(distanceMeters float64, speed *float64) int {
	effectiveSpeed := UrbanFallbackSpeed
	if speed != nil && *speed > 0 {
		effectiveSpeed = *speed
	}

	minutes := distanceMeters / effectiveSpeed / 60.0
	rounded := int(math.Round(minutes))
	if rounded < 1 {
		return 1
	}
	return rounded
}

// ArrivalAt returns the estimated arrival timestamp
func ArrivalAt(now time.Time, minutes int) time.Time {
	return now.Add(time.Duration(minutes) * time.Minute)
}

// Estimate bundles the derived metrics for one provider/customer pair
type Estimate struct {
	DistanceMeters float64
	Minutes        int
	ArrivalAt      time.Time
}

// Straight computes a straight-line estimate between two points
func Straight(now time.Time, a, b utils.GeoPoint, speed *float64) Estimate {
	distance := Distance(a, b)
	minutes := Minutes(distance, speed)
	return Estimate{
		DistanceMeters: distance,
		Minutes:        minutes,
		ArrivalAt:      ArrivalAt(now, minutes),
	}
}

// FromRoute converts a routing collaborator's estimate. The duration is
// rounded to whole minutes with the same one-minute floor as Minutes.
func FromRoute(now time.Time, route *models.RouteEstimate) Estimate {
	minutes := int(math.Round(route.DurationSeconds / 60.0))
	if minutes < 1 {
		minutes = 1
	}
	return Estimate{
		DistanceMeters: route.DistanceMeters,
		Minutes:        minutes,
		ArrivalAt:      ArrivalAt(now, minutes),
	}
}
