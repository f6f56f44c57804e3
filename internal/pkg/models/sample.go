package models

import (
	"errors"
	"time"
)

// PartyRole identifies which side of a tracked job reported a sample
type PartyRole string

const (
	PartyRoleProvider PartyRole = "PROVIDER"
	PartyRoleCustomer PartyRole = "CUSTOMER"
)

// Valid reports whether the role is one of the two known parties
func (r PartyRole) Valid() bool {
	return r == PartyRoleProvider || r == PartyRoleCustomer
}

// Counterpart returns the opposite party role
func (r PartyRole) Counterpart() PartyRole {
	if r == PartyRoleProvider {
		return PartyRoleCustomer
	}
	return PartyRoleProvider
}

// PositionSample represents one reported geolocation fix with metadata.
// Samples are immutable once created; the most recent sample by CapturedAt
// is the current one for a (party, job) pair.
type PositionSample struct {
	PartyID    string    `json:"party_id"`
	PartyRole  PartyRole `json:"party_role"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	Heading    *float64  `json:"heading,omitempty"`
	Speed      *float64  `json:"speed,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
	JobID      string    `json:"job_id"`
}

// Validate checks the sample against the coordinate and metadata contract
func (s *PositionSample) Validate() error {
	if s == nil {
		return errors.New("sample cannot be nil")
	}
	if s.PartyID == "" {
		return errors.New("party id is required")
	}
	if s.JobID == "" {
		return errors.New("job id is required")
	}
	if !s.PartyRole.Valid() {
		return errors.New("party role must be PROVIDER or CUSTOMER")
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return errors.New("latitude must be between -90 and 90")
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return errors.New("longitude must be between -180 and 180")
	}
	if s.Accuracy < 0 {
		return errors.New("accuracy must be non-negative")
	}
	if s.Heading != nil && (*s.Heading < 0 || *s.Heading >= 360) {
		return errors.New("heading must be within [0,360)")
	}
	if s.Speed != nil && *s.Speed < 0 {
		return errors.New("speed must be non-negative")
	}
	return nil
}
