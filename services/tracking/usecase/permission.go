package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tippyhq/tracking/internal/pkg/logger"
	"github.com/tippyhq/tracking/internal/pkg/models"
	"github.com/tippyhq/tracking/services/tracking"
)

// ErrInvalidGrant signals a grant request with missing parties or an expiry
// that is not in the future
var ErrInvalidGrant = errors.New("invalid permission grant")

// ErrNotGrantor signals a revoke attempt by someone other than the party who
// issued the permission
var ErrNotGrantor = errors.New("only the grantor may revoke a permission")

// permissionUC implements tracking.PermissionUC over the permission store
type permissionUC struct {
	repo tracking.PermissionRepo
}

// NewPermissionUC creates the permission gate
func NewPermissionUC(repo tracking.PermissionRepo) tracking.PermissionUC {
	return &permissionUC{repo: repo}
}

// Grant issues a new ACTIVE permission. A prior ACTIVE permission for the
// same (grantor, grantee, job) triple is superseded, not extended.
func (u *permissionUC) Grant(ctx context.Context, grantorID, granteeID, jobID string, expiresAt time.Time) (*models.LocationPermission, error) {
	if grantorID == "" || granteeID == "" || jobID == "" {
		return nil, fmt.Errorf("%w: grantor, grantee and job are required", ErrInvalidGrant)
	}
	if !expiresAt.After(time.Now()) {
		return nil, fmt.Errorf("%w: expiry must be in the future", ErrInvalidGrant)
	}

	perm := &models.LocationPermission{
		ID:        uuid.New(),
		GrantorID: grantorID,
		GranteeID: granteeID,
		JobID:     jobID,
		ExpiresAt: expiresAt,
		Status:    models.PermissionStatusActive,
	}
	if err := u.repo.Create(ctx, perm); err != nil {
		return nil, fmt.Errorf("failed to grant permission: %w", err)
	}

	logger.InfoCtx(ctx, "location permission granted",
		logger.String("permission_id", perm.ID.String()),
		logger.String("grantor_id", grantorID),
		logger.String("grantee_id", granteeID),
		logger.String("job_id", jobID))
	return perm, nil
}

// Revoke marks the permission REVOKED. Only the grantor may revoke; revoking
// an unknown or already inactive permission is a no-op.
func (u *permissionUC) Revoke(ctx context.Context, permissionID uuid.UUID, requesterID string) error {
	perm, err := u.repo.GetByID(ctx, permissionID)
	if err != nil {
		return fmt.Errorf("failed to load permission: %w", err)
	}
	if perm == nil || perm.Status != models.PermissionStatusActive {
		return nil
	}
	if perm.GrantorID != requesterID {
		return ErrNotGrantor
	}

	if err := u.repo.UpdateStatus(ctx, permissionID, models.PermissionStatusRevoked); err != nil {
		return fmt.Errorf("failed to revoke permission: %w", err)
	}

	logger.InfoCtx(ctx, "location permission revoked",
		logger.String("permission_id", permissionID.String()),
		logger.String("job_id", perm.JobID))
	return nil
}

// IsActive reports whether the exact (grantor, grantee, job) triple holds an
// unexpired ACTIVE permission at the given instant
func (u *permissionUC) IsActive(ctx context.Context, grantorID, granteeID, jobID string, now time.Time) (bool, error) {
	perm, err := u.repo.GetActive(ctx, grantorID, granteeID, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return u.evaluate(ctx, perm, now), nil
}

// HasActiveGrant reports whether the grantor holds any unexpired ACTIVE
// permission for the job, regardless of grantee
func (u *permissionUC) HasActiveGrant(ctx context.Context, grantorID, jobID string, now time.Time) (bool, error) {
	perm, err := u.repo.GetActiveByGrantor(ctx, grantorID, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return u.evaluate(ctx, perm, now), nil
}

// evaluate applies lazy expiry: a stored ACTIVE permission past its expiry is
// denied and flipped to EXPIRED on first observation
func (u *permissionUC) evaluate(ctx context.Context, perm *models.LocationPermission, now time.Time) bool {
	if perm == nil {
		return false
	}
	if perm.ActiveAt(now) {
		return true
	}
	if perm.Status == models.PermissionStatusActive {
		if err := u.repo.UpdateStatus(ctx, perm.ID, models.PermissionStatusExpired); err != nil {
			logger.WarnCtx(ctx, "failed to mark permission expired",
				logger.String("permission_id", perm.ID.String()),
				logger.Err(err))
		}
	}
	return false
}
