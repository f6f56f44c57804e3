package constants

// WebSocket event types
const (
	// Common events
	EventError = "error"
	EventPing  = "ping"
	EventPong  = "pong"

	// Tracking events
	EventLocationUpdate  = "location_update"
	EventTrackingArrived = "tracking_arrived"
	EventSessionUpdate   = "session_update"
)

// WebSocket error codes
const (
	ErrorInvalidFormat   = "invalid_format"
	ErrorUnauthorized    = "unauthorized"
	ErrorInternalError   = "internal_error"
	ErrorInvalidLocation = "invalid_location"
)
