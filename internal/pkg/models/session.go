package models

import "time"

// TrackingStatus represents the current status of a tracking session
type TrackingStatus string

const (
	TrackingStatusIdle       TrackingStatus = "IDLE"
	TrackingStatusTraveling  TrackingStatus = "TRAVELING"
	TrackingStatusArrived    TrackingStatus = "ARRIVED"
	TrackingStatusInProgress TrackingStatus = "IN_PROGRESS"
	TrackingStatusCompleted  TrackingStatus = "COMPLETED"
	TrackingStatusCancelled  TrackingStatus = "CANCELLED"
)

// Valid reports whether the status is a known tracking status
func (s TrackingStatus) Valid() bool {
	switch s {
	case TrackingStatusIdle, TrackingStatusTraveling, TrackingStatusArrived,
		TrackingStatusInProgress, TrackingStatusCompleted, TrackingStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status ends the session's lifecycle
func (s TrackingStatus) Terminal() bool {
	return s == TrackingStatusCompleted || s == TrackingStatusCancelled
}

// TrackingSession is the live tracking record for one job. It is mutated
// only by the tracking state machine owning that job; reads receive a copy.
type TrackingSession struct {
	JobID             string          `json:"job_id"`
	Status            TrackingStatus  `json:"status"`
	ProviderPosition  *PositionSample `json:"provider_position,omitempty"`
	CustomerPosition  *PositionSample `json:"customer_position,omitempty"`
	ETAMinutes        *int            `json:"eta_minutes,omitempty"`
	DistanceMeters    *float64        `json:"distance_meters,omitempty"`
	ArrivalEstimateAt *time.Time      `json:"arrival_estimate_at,omitempty"`
	IsNearby          bool            `json:"is_nearby"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// RouteEstimate is a distance/duration estimate from a routing collaborator
type RouteEstimate struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// ArrivedEvent is emitted exactly once when a session transitions to ARRIVED
type ArrivedEvent struct {
	Type       string    `json:"type"`
	JobID      string    `json:"job_id"`
	ProviderID string    `json:"provider_id,omitempty"`
	CustomerID string    `json:"customer_id,omitempty"`
	ArrivedAt  time.Time `json:"arrived_at"`
}

// ArrivedEventType is the only event type the notification sink receives
const ArrivedEventType = "ARRIVED"
