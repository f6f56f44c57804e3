package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tippyhq/tracking/internal/pkg/models"
)

// memPermissionRepo mirrors the store's supersede-on-create behavior
type memPermissionRepo struct {
	mu    sync.Mutex
	perms map[uuid.UUID]*models.LocationPermission
}

func newMemPermissionRepo() *memPermissionRepo {
	return &memPermissionRepo{perms: make(map[uuid.UUID]*models.LocationPermission)}
}

func (r *memPermissionRepo) Create(ctx context.Context, perm *models.LocationPermission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.perms {
		if existing.GrantorID == perm.GrantorID && existing.GranteeID == perm.GranteeID &&
			existing.JobID == perm.JobID && existing.Status == models.PermissionStatusActive {
			existing.Status = models.PermissionStatusRevoked
		}
	}
	copied := *perm
	copied.CreatedAt = time.Now()
	copied.UpdatedAt = copied.CreatedAt
	r.perms[perm.ID] = &copied
	return nil
}

func (r *memPermissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.LocationPermission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	perm, ok := r.perms[id]
	if !ok {
		return nil, nil
	}
	copied := *perm
	return &copied, nil
}

func (r *memPermissionRepo) GetActive(ctx context.Context, grantorID, granteeID, jobID string) (*models.LocationPermission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, perm := range r.perms {
		if perm.GrantorID == grantorID && perm.GranteeID == granteeID &&
			perm.JobID == jobID && perm.Status == models.PermissionStatusActive {
			copied := *perm
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memPermissionRepo) GetActiveByGrantor(ctx context.Context, grantorID, jobID string) (*models.LocationPermission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, perm := range r.perms {
		if perm.GrantorID == grantorID && perm.JobID == jobID &&
			perm.Status == models.PermissionStatusActive {
			copied := *perm
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memPermissionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PermissionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if perm, ok := r.perms[id]; ok {
		perm.Status = status
		perm.UpdatedAt = time.Now()
	}
	return nil
}

func (r *memPermissionRepo) statusOf(id uuid.UUID) models.PermissionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.perms[id].Status
}

func TestGrant_CreatesActivePermission(t *testing.T) {
	repo := newMemPermissionRepo()
	uc := NewPermissionUC(repo)
	ctx := context.Background()

	perm, err := uc.Grant(ctx, "customer-1", "provider-1", "job-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, perm)
	assert.Equal(t, models.PermissionStatusActive, perm.Status)
	assert.NotEqual(t, uuid.Nil, perm.ID)

	active, err := uc.IsActive(ctx, "customer-1", "provider-1", "job-1", time.Now())
	require.NoError(t, err)
	assert.True(t, active)
}

func TestGrant_RejectsInvalidInput(t *testing.T) {
	uc := NewPermissionUC(newMemPermissionRepo())
	ctx := context.Background()

	_, err := uc.Grant(ctx, "", "provider-1", "job-1", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidGrant)

	_, err = uc.Grant(ctx, "customer-1", "provider-1", "job-1", time.Now().Add(-time.Minute))
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestGrant_SupersedesPriorGrant(t *testing.T) {
	repo := newMemPermissionRepo()
	uc := NewPermissionUC(repo)
	ctx := context.Background()

	first, err := uc.Grant(ctx, "customer-1", "provider-1", "job-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	second, err := uc.Grant(ctx, "customer-1", "provider-1", "job-1", time.Now().Add(2*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, models.PermissionStatusRevoked, repo.statusOf(first.ID))
	assert.Equal(t, models.PermissionStatusActive, repo.statusOf(second.ID))

	active, err := uc.IsActive(ctx, "customer-1", "provider-1", "job-1", time.Now())
	require.NoError(t, err)
	assert.True(t, active)
}

func TestRevoke_Idempotent(t *testing.T) {
	repo := newMemPermissionRepo()
	uc := NewPermissionUC(repo)
	ctx := context.Background()

	perm, err := uc.Grant(ctx, "customer-1", "provider-1", "job-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, uc.Revoke(ctx, perm.ID, "customer-1"))
	require.NoError(t, uc.Revoke(ctx, perm.ID, "customer-1"))
	require.NoError(t, uc.Revoke(ctx, uuid.New(), "customer-1")) // unknown id

	assert.Equal(t, models.PermissionStatusRevoked, repo.statusOf(perm.ID))

	active, err := uc.IsActive(ctx, "customer-1", "provider-1", "job-1", time.Now())
	require.NoError(t, err)
	assert.False(t, active)
}

func TestRevoke_OnlyGrantorMayRevoke(t *testing.T) {
	repo := newMemPermissionRepo()
	uc := NewPermissionUC(repo)
	ctx := context.Background()

	perm, err := uc.Grant(ctx, "customer-1", "provider-1", "job-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	err = uc.Revoke(ctx, perm.ID, "provider-1")
	assert.ErrorIs(t, err, ErrNotGrantor)
	assert.Equal(t, models.PermissionStatusActive, repo.statusOf(perm.ID))

	require.NoError(t, uc.Revoke(ctx, perm.ID, "customer-1"))
	assert.Equal(t, models.PermissionStatusRevoked, repo.statusOf(perm.ID))
}

func TestIsActive_LazyExpiry(t *testing.T) {
	repo := newMemPermissionRepo()
	uc := NewPermissionUC(repo)
	ctx := context.Background()

	perm, err := uc.Grant(ctx, "customer-1", "provider-1", "job-1", time.Now().Add(time.Minute))
	require.NoError(t, err)

	// Past the expiry instant the grant is denied and flipped to EXPIRED
	// even though nothing updated the row in between
	active, err := uc.IsActive(ctx, "customer-1", "provider-1", "job-1", time.Now().Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, active)
	assert.Equal(t, models.PermissionStatusExpired, repo.statusOf(perm.ID))
}

func TestIsActive_NoGrant(t *testing.T) {
	uc := NewPermissionUC(newMemPermissionRepo())

	active, err := uc.IsActive(context.Background(), "customer-1", "provider-1", "job-1", time.Now())
	require.NoError(t, err)
	assert.False(t, active)
}

func TestHasActiveGrant_AnyGrantee(t *testing.T) {
	repo := newMemPermissionRepo()
	uc := NewPermissionUC(repo)
	ctx := context.Background()

	_, err := uc.Grant(ctx, "customer-1", "provider-1", "job-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	active, err := uc.HasActiveGrant(ctx, "customer-1", "job-1", time.Now())
	require.NoError(t, err)
	assert.True(t, active)

	active, err = uc.HasActiveGrant(ctx, "provider-1", "job-1", time.Now())
	require.NoError(t, err)
	assert.False(t, active)
}

func TestRegrantAfterRevokeRestoresSharing(t *testing.T) {
	repo := newMemPermissionRepo()
	uc := NewPermissionUC(repo)
	ctx := context.Background()

	first, err := uc.Grant(ctx, "customer-1", "provider-1", "job-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, uc.Revoke(ctx, first.ID, "customer-1"))

	active, err := uc.HasActiveGrant(ctx, "customer-1", "job-1", time.Now())
	require.NoError(t, err)
	require.False(t, active)

	_, err = uc.Grant(ctx, "customer-1", "provider-1", "job-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	active, err = uc.HasActiveGrant(ctx, "customer-1", "job-1", time.Now())
	require.NoError(t, err)
	assert.True(t, active)
}
