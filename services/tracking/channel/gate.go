package channel

import (
	"context"
	"time"

	"github.com/tippyhq/tracking/internal/pkg/models"
	"github.com/tippyhq/tracking/services/tracking"
)

// publishAllowed checks the sharing permission for an outgoing sample. When
// the counterpart has already reported a position their identity is known and
// the exact (grantor, grantee, job) triple is checked; before that, any
// active grant by the publisher for the job authorizes the publish.
func publishAllowed(ctx context.Context, positions tracking.PositionRepo, permissions tracking.PermissionUC, sample *models.PositionSample) (bool, error) {
	now := time.Now()

	counterpart, err := positions.QueryLatest(ctx, sample.JobID, sample.PartyRole.Counterpart())
	if err != nil {
		return false, err
	}
	if counterpart != nil {
		return permissions.IsActive(ctx, sample.PartyID, counterpart.PartyID, sample.JobID, now)
	}
	return permissions.HasActiveGrant(ctx, sample.PartyID, sample.JobID, now)
}
