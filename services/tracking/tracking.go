package tracking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tippyhq/tracking/internal/pkg/models"
)

// ErrInvalidTransition signals a status change that skips required
// intermediate states. It is an integration error: callers log it loudly but
// the session state is left unchanged.
var ErrInvalidTransition = errors.New("invalid tracking status transition")

// ErrSessionNotFound signals that no live session exists for the job
var ErrSessionNotFound = errors.New("tracking session not found")

// ErrAlreadyTracking signals that a live session already exists for the job
var ErrAlreadyTracking = errors.New("tracking already active for job")

// TrackingUC is the mutation and read surface the tracking core exposes to
// collaborators. StartTracking, StopTracking and UpdateStatus are the only
// mutation entry points.
type TrackingUC interface {
	StartTracking(ctx context.Context, jobID string) error
	StopTracking(ctx context.Context, jobID string) error
	UpdateStatus(ctx context.Context, jobID string, status models.TrackingStatus) error
	GetSession(ctx context.Context, jobID string) (*models.TrackingSession, error)
	PublishSample(ctx context.Context, sample *models.PositionSample) error
}

// PermissionUC is the location-sharing permission gate
type PermissionUC interface {
	Grant(ctx context.Context, grantorID, granteeID, jobID string, expiresAt time.Time) (*models.LocationPermission, error)
	Revoke(ctx context.Context, permissionID uuid.UUID, requesterID string) error
	IsActive(ctx context.Context, grantorID, granteeID, jobID string, now time.Time) (bool, error)
	HasActiveGrant(ctx context.Context, grantorID, jobID string, now time.Time) (bool, error)
}
