// Package websocket delivers tracking events straight to connected clients.
// It is the degraded-mode counterpart of the broker-backed gateway for
// deployments running without a message broker.
package websocket

import (
	"context"

	"github.com/tippyhq/tracking/internal/pkg/constants"
	"github.com/tippyhq/tracking/internal/pkg/logger"
	"github.com/tippyhq/tracking/internal/pkg/models"
)

// Notifier pushes an event to one connected client; disconnected clients are
// skipped silently
type Notifier interface {
	NotifyClient(userID string, event string, data interface{})
}

// TrackingGW implements the tracking event sink over direct client pushes
type TrackingGW struct {
	notifier Notifier
}

// NewTrackingGW creates the direct-push gateway
func NewTrackingGW(notifier Notifier) *TrackingGW {
	return &TrackingGW{notifier: notifier}
}

// PublishArrived notifies both parties of the job that the provider arrived
func (g *TrackingGW) PublishArrived(ctx context.Context, event *models.ArrivedEvent) error {
	logger.InfoCtx(ctx, "publishing arrival event to connected clients",
		logger.String("job_id", event.JobID),
		logger.String("provider_id", event.ProviderID))

	for _, userID := range []string{event.ProviderID, event.CustomerID} {
		if userID == "" {
			continue
		}
		g.notifier.NotifyClient(userID, constants.EventTrackingArrived, event)
	}
	return nil
}
