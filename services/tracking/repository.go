package tracking

import (
	"context"

	"github.com/google/uuid"
	"github.com/tippyhq/tracking/internal/pkg/models"
)

// PositionRepo stores the latest position sample per (job, party role).
// QueryLatest returns (nil, nil) when no sample has been stored yet.
type PositionRepo interface {
	Insert(ctx context.Context, sample *models.PositionSample) error
	QueryLatest(ctx context.Context, jobID string, role models.PartyRole) (*models.PositionSample, error)
}

// PermissionRepo persists location-sharing permissions.
// Create supersedes any prior ACTIVE permission for the same
// (grantor, grantee, job) triple. GetActive and GetActiveByGrantor return
// (nil, nil) when no ACTIVE permission exists.
type PermissionRepo interface {
	Create(ctx context.Context, perm *models.LocationPermission) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.LocationPermission, error)
	GetActive(ctx context.Context, grantorID, granteeID, jobID string) (*models.LocationPermission, error)
	GetActiveByGrantor(ctx context.Context, grantorID, jobID string) (*models.LocationPermission, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.PermissionStatus) error
}
