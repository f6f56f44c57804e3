package constants

// Redis key formats
const (
	// Tracking service
	KeyJobPosition = "tracking:position:%s:%s" // Format: tracking:position:{job_id}:{party_role}
)

// Redis hash fields
const (
	FieldPartyID    = "party_id"
	FieldLatitude   = "lat"
	FieldLongitude  = "lng"
	FieldAccuracy   = "acc"
	FieldHeading    = "hdg"
	FieldSpeed      = "spd"
	FieldCapturedAt = "ts"
)
