// Package nats publishes tracking events to downstream consumers
package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tippyhq/tracking/internal/pkg/constants"
	"github.com/tippyhq/tracking/internal/pkg/logger"
	"github.com/tippyhq/tracking/internal/pkg/models"
)

// Publisher is the message publishing capability the gateway needs
type Publisher interface {
	Publish(subject string, data []byte) error
}

// TrackingGW fans tracking events out over NATS
type TrackingGW struct {
	pub Publisher
}

// NewTrackingGW creates the event gateway
func NewTrackingGW(pub Publisher) *TrackingGW {
	return &TrackingGW{pub: pub}
}

// PublishArrived emits the arrival event for the notification sink
func (g *TrackingGW) PublishArrived(ctx context.Context, event *models.ArrivedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal arrival event: %w", err)
	}

	if err := g.pub.Publish(constants.SubjectTrackingArrived, data); err != nil {
		return fmt.Errorf("failed to publish arrival event: %w", err)
	}

	logger.InfoCtx(ctx, "arrival event published",
		logger.String("job_id", event.JobID),
		logger.String("provider_id", event.ProviderID))
	return nil
}
