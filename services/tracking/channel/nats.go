package channel

import (
	"context"
	"encoding/json"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"github.com/tippyhq/tracking/internal/pkg/constants"
	"github.com/tippyhq/tracking/internal/pkg/logger"
	"github.com/tippyhq/tracking/internal/pkg/models"
	"github.com/tippyhq/tracking/internal/pkg/nats"
	"github.com/tippyhq/tracking/services/tracking"
)

// NATSChannel propagates samples over a per-job NATS subject. Published
// samples are also written to the position store so late subscribers get a
// snapshot.
type NATSChannel struct {
	client      *nats.Client
	positions   tracking.PositionRepo
	permissions tracking.PermissionUC
}

// NewNATSChannel creates a NATS-backed position channel
func NewNATSChannel(client *nats.Client, positions tracking.PositionRepo, permissions tracking.PermissionUC) *NATSChannel {
	return &NATSChannel{
		client:      client,
		positions:   positions,
		permissions: permissions,
	}
}

// Publish validates the sample, checks the publisher's sharing permission,
// stores the sample and fans it out. A missing permission is a logged no-op,
// never an error back to the device loop.
func (c *NATSChannel) Publish(ctx context.Context, sample *models.PositionSample) error {
	if err := sample.Validate(); err != nil {
		return fmt.Errorf("invalid position sample: %w", err)
	}

	allowed, err := publishAllowed(ctx, c.positions, c.permissions, sample)
	if err != nil {
		return fmt.Errorf("failed to check sharing permission: %w", err)
	}
	if !allowed {
		logger.WarnCtx(ctx, "dropping position publish without active sharing permission",
			logger.String("party_id", sample.PartyID),
			logger.String("job_id", sample.JobID))
		return nil
	}

	if err := c.positions.Insert(ctx, sample); err != nil {
		return fmt.Errorf("failed to store position sample: %w", err)
	}

	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal position sample: %w", err)
	}

	subject := fmt.Sprintf(constants.SubjectTrackingPosition, sample.JobID)
	if err := c.client.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish position sample: %w", err)
	}
	return nil
}

// Subscribe delivers a snapshot of the latest stored sample per party, then
// live samples from the job's subject. Regressions in CapturedAt per party
// are discarded silently.
func (c *NATSChannel) Subscribe(ctx context.Context, jobID string, onRemote tracking.RemoteSampleFunc) (tracking.ChannelSubscription, error) {
	sub := newSubscription()

	for _, role := range []models.PartyRole{models.PartyRoleProvider, models.PartyRoleCustomer} {
		stored, err := c.positions.QueryLatest(ctx, jobID, role)
		if err != nil {
			logger.WarnCtx(ctx, "snapshot fetch failed, continuing without it",
				logger.String("job_id", jobID),
				logger.String("party_role", string(role)),
				logger.Err(err))
			continue
		}
		if stored != nil {
			sub.deliver(stored, onRemote)
		}
	}

	subject := fmt.Sprintf(constants.SubjectTrackingPosition, jobID)
	natsSub, err := c.client.Subscribe(subject, func(msg *natsgo.Msg) {
		var sample models.PositionSample
		if err := json.Unmarshal(msg.Data, &sample); err != nil {
			logger.Error("failed to unmarshal position sample",
				logger.String("subject", msg.Subject),
				logger.Err(err))
			return
		}
		sub.deliver(&sample, onRemote)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to position subject: %w", err)
	}

	sub.cleanup = func() {
		if err := natsSub.Unsubscribe(); err != nil {
			logger.Warn("failed to unsubscribe from position subject",
				logger.String("job_id", jobID),
				logger.Err(err))
		}
	}
	return sub, nil
}
