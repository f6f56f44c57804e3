package models

import (
	"time"

	"github.com/google/uuid"
)

// PermissionStatus represents the stored status of a location permission
type PermissionStatus string

const (
	PermissionStatusActive  PermissionStatus = "ACTIVE"
	PermissionStatusRevoked PermissionStatus = "REVOKED"
	PermissionStatusExpired PermissionStatus = "EXPIRED"
)

// LocationPermission is a time-boxed, revocable authorization for the
// grantor's position to be shared with the grantee for one job.
type LocationPermission struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	GrantorID string           `json:"grantor_id" db:"grantor_id"`
	GranteeID string           `json:"grantee_id" db:"grantee_id"`
	JobID     string           `json:"job_id" db:"job_id"`
	ExpiresAt time.Time        `json:"expires_at" db:"expires_at"`
	Status    PermissionStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`
}

// ActiveAt reports whether the permission authorizes sharing at the given
// instant. Expiry is evaluated lazily: a permission past ExpiresAt is
// treated as expired even if the stored status has not been updated yet.
func (p *LocationPermission) ActiveAt(now time.Time) bool {
	if p == nil {
		return false
	}
	return p.Status == PermissionStatusActive && now.Before(p.ExpiresAt)
}
