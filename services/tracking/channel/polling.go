package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/tippyhq/tracking/internal/pkg/logger"
	"github.com/tippyhq/tracking/internal/pkg/models"
	"github.com/tippyhq/tracking/services/tracking"
)

// DefaultPollInterval matches the degraded-mode refresh cadence
const DefaultPollInterval = 5 * time.Second

// PollingChannel is the fallback transport for deployments without a live
// fan-out path. Publishes go straight to the position store; subscribers poll
// it on a fixed interval. Consumers see the same interface and ordering
// guarantees as the live channel, only with added latency.
type PollingChannel struct {
	positions   tracking.PositionRepo
	permissions tracking.PermissionUC
	interval    time.Duration
}

// NewPollingChannel creates a store-polling position channel
func NewPollingChannel(positions tracking.PositionRepo, permissions tracking.PermissionUC, interval time.Duration) *PollingChannel {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollingChannel{
		positions:   positions,
		permissions: permissions,
		interval:    interval,
	}
}

// Publish applies the same permission gate as the live channel and stores the
// sample for pickup by pollers
func (c *PollingChannel) Publish(ctx context.Context, sample *models.PositionSample) error {
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
	return nil
}

// Subscribe delivers the stored snapshot immediately, then polls the store
// for strictly newer samples until unsubscribed
func (c *PollingChannel) Subscribe(ctx context.Context, jobID string, onRemote tracking.RemoteSampleFunc) (tracking.ChannelSubscription, error) {
	sub := newSubscription()

	c.pollOnce(ctx, jobID, sub, onRemote, false)

	done := make(chan struct{})
	sub.cleanup = func() { close(done) }

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.pollOnce(context.Background(), jobID, sub, onRemote, true)
			}
		}
	}()

	return sub, nil
}

func (c *PollingChannel) pollOnce(ctx context.Context, jobID string, sub *subscription, onRemote tracking.RemoteSampleFunc, strict bool) {
	for _, role := range []models.PartyRole{models.PartyRoleProvider, models.PartyRoleCustomer} {
		stored, err := c.positions.QueryLatest(ctx, jobID, role)
		if err != nil {
			logger.Warn("position poll failed",
				logger.String("job_id", jobID),
				logger.String("party_role", string(role)),
				logger.Err(err))
			continue
		}
		if stored == nil {
			continue
		}
		if strict {
			sub.deliverNew(stored, onRemote)
		} else {
			sub.deliver(stored, onRemote)
		}
	}
}
