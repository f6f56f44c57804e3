package constants

// NATS Subjects
const (
	// Tracking service
	SubjectTrackingPosition = "tracking.position.%s" // Format: tracking.position.{job_id}
	SubjectTrackingArrived  = "tracking.arrived"
)
