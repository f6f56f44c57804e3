package tracking

import (
	"context"

	"github.com/tippyhq/tracking/internal/pkg/models"
)

// RemoteSampleFunc receives position samples delivered for a job. Delivery
// is at-least-once; the channel guarantees per-party ordering by CapturedAt
// and silently discards regressions before invoking the callback.
type RemoteSampleFunc func(sample *models.PositionSample)

// PositionChannel propagates position samples between the two parties of a
// job. Publish is a logged no-op when the publisher holds no ACTIVE
// location-sharing permission for the job. Subscribe delivers a best-effort
// snapshot of the latest known sample per party before live updates.
type PositionChannel interface {
	Publish(ctx context.Context, sample *models.PositionSample) error
	Subscribe(ctx context.Context, jobID string, onRemote RemoteSampleFunc) (ChannelSubscription, error)
}

// ChannelSubscription is the disposable handle returned by Subscribe.
// Unsubscribe is idempotent and stops all further callbacks.
type ChannelSubscription interface {
	Unsubscribe()
}
