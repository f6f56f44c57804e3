package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tippyhq/tracking/internal/pkg/models"
)

// PermissionRepo persists location-sharing permissions in Postgres
type PermissionRepo struct {
	db *sqlx.DB
}

// NewPermissionRepo creates a permission repository
func NewPermissionRepo(db *sqlx.DB) *PermissionRepo {
	return &PermissionRepo{db: db}
}

// Create inserts a new permission. Any prior ACTIVE permission for the same
// (grantor, grantee, job) triple is marked REVOKED in the same transaction so
// exactly one grant can be ACTIVE per triple.
func (r *PermissionRepo) Create(ctx context.Context, perm *models.LocationPermission) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE location_permissions
		SET status = 'REVOKED', updated_at = NOW()
		WHERE grantor_id = $1 AND grantee_id = $2 AND job_id = $3 AND status = 'ACTIVE'`,
		perm.GrantorID, perm.GranteeID, perm.JobID)
	if err != nil {
		return fmt.Errorf("failed to supersede prior permission: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO location_permissions
			(id, grantor_id, grantee_id, job_id, expires_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
		perm.ID, perm.GrantorID, perm.GranteeID, perm.JobID, perm.ExpiresAt, perm.Status)
	if err != nil {
		return fmt.Errorf("failed to insert permission: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit permission: %w", err)
	}
	return nil
}

// GetByID fetches a permission by primary key, returning (nil, nil) when no
// row exists
func (r *PermissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.LocationPermission, error) {
	var perm models.LocationPermission
	err := r.db.GetContext(ctx, &perm, `
		SELECT id, grantor_id, grantee_id, job_id, expires_at, status, created_at, updated_at
		FROM location_permissions
		WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &perm, nil
}

// GetActive fetches the ACTIVE permission for the exact triple, or (nil, nil)
func (r *PermissionRepo) GetActive(ctx context.Context, grantorID, granteeID, jobID string) (*models.LocationPermission, error) {
	var perm models.LocationPermission
	err := r.db.GetContext(ctx, &perm, `
		SELECT id, grantor_id, grantee_id, job_id, expires_at, status, created_at, updated_at
		FROM location_permissions
		WHERE grantor_id = $1 AND grantee_id = $2 AND job_id = $3 AND status = 'ACTIVE'
		ORDER BY created_at DESC
		LIMIT 1`, grantorID, granteeID, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active permission: %w", err)
	}
	return &perm, nil
}

// GetActiveByGrantor fetches the grantor's ACTIVE permission for a job
// regardless of grantee, or (nil, nil)
func (r *PermissionRepo) GetActiveByGrantor(ctx context.Context, grantorID, jobID string) (*models.LocationPermission, error) {
	var perm models.LocationPermission
	err := r.db.GetContext(ctx, &perm, `
		SELECT id, grantor_id, grantee_id, job_id, expires_at, status, created_at, updated_at
		FROM location_permissions
		WHERE grantor_id = $1 AND job_id = $2 AND status = 'ACTIVE'
		ORDER BY created_at DESC
		LIMIT 1`, grantorID, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active permission by grantor: %w", err)
	}
	return &perm, nil
}

// UpdateStatus sets the stored status of a permission
func (r *PermissionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PermissionStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE location_permissions
		SET status = $1, updated_at = NOW()
		WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update permission status: %w", err)
	}
	return nil
}
