package channel

import (
	"time"

	"github.com/tippyhq/tracking/internal/pkg/nats"
	"github.com/tippyhq/tracking/services/tracking"
)

// New selects the channel implementation for the deployment: NATS push when
// a broker connection is available, the store-polling fallback otherwise.
func New(client *nats.Client, positions tracking.PositionRepo, permissions tracking.PermissionUC, pollInterval time.Duration) tracking.PositionChannel {
	if client == nil {
		return NewPollingChannel(positions, permissions, pollInterval)
	}
	return NewNATSChannel(client, positions, permissions)
}
