// Package nats consumes tracking events and fans them out to connected
// WebSocket clients
package nats

import (
	"encoding/json"

	natsgo "github.com/nats-io/nats.go"
	"github.com/tippyhq/tracking/internal/pkg/constants"
	"github.com/tippyhq/tracking/internal/pkg/logger"
	"github.com/tippyhq/tracking/internal/pkg/models"
	"github.com/tippyhq/tracking/internal/pkg/nats"
	"github.com/tippyhq/tracking/internal/pkg/websocket"
)

// Handler routes arrival events to the parties of the job
type Handler struct {
	client  *nats.Client
	manager *websocket.Manager
	subs    []*natsgo.Subscription
}

// NewHandler creates the event consumer
func NewHandler(client *nats.Client, manager *websocket.Manager) *Handler {
	return &Handler{
		client:  client,
		manager: manager,
	}
}

// Start subscribes to the tracking event subjects
func (h *Handler) Start() error {
	sub, err := h.client.Subscribe(constants.SubjectTrackingArrived, h.handleArrived)
	if err != nil {
		return err
	}
	h.subs = append(h.subs, sub)
	return nil
}

// Stop drains all subscriptions
func (h *Handler) Stop() {
	for _, sub := range h.subs {
		if err := sub.Unsubscribe(); err != nil {
			logger.Warn("failed to unsubscribe", logger.Err(err))
		}
	}
	h.subs = nil
}

func (h *Handler) handleArrived(msg *natsgo.Msg) {
	var event models.ArrivedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("failed to unmarshal arrival event",
			logger.String("subject", msg.Subject),
			logger.Err(err))
		return
	}

	logger.Info("arrival event received",
		logger.String("job_id", event.JobID),
		logger.String("provider_id", event.ProviderID))

	for _, userID := range []string{event.ProviderID, event.CustomerID} {
		if userID == "" {
			continue
		}
		h.manager.NotifyClient(userID, constants.EventTrackingArrived, &event)
	}
}
