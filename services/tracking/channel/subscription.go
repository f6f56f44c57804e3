// Package channel implements position propagation between the two parties of
// a job. The primary implementation rides NATS; a polling implementation
// backed by the position store serves as a degraded fallback behind the same
// interface.
package channel

import (
	"sync"
	"time"

	"github.com/tippyhq/tracking/internal/pkg/models"
	"github.com/tippyhq/tracking/services/tracking"
)

// subscription tracks per-party delivery ordering and the closed state shared
// by both channel implementations. Unsubscribe is idempotent.
type subscription struct {
	mu      sync.Mutex
	closed  bool
	latest  map[models.PartyRole]time.Time
	cleanup func()
}

func newSubscription() *subscription {
	return &subscription{
		latest: make(map[models.PartyRole]time.Time),
	}
}

// deliver invokes onRemote unless the subscription is closed or the sample
// regresses behind the last delivered CapturedAt for its party. A sample with
// the same CapturedAt as the last one counts as fresh.
func (s *subscription) deliver(sample *models.PositionSample, onRemote tracking.RemoteSampleFunc) {
	s.deliverWith(sample, onRemote, false)
}

// deliverNew is the polling variant: redeliveries of the sample already seen
// for a party are dropped, only a strictly newer CapturedAt passes.
func (s *subscription) deliverNew(sample *models.PositionSample, onRemote tracking.RemoteSampleFunc) {
	s.deliverWith(sample, onRemote, true)
}

func (s *subscription) deliverWith(sample *models.PositionSample, onRemote tracking.RemoteSampleFunc, strict bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	last, seen := s.latest[sample.PartyRole]
	if seen {
		if sample.CapturedAt.Before(last) {
			s.mu.Unlock()
			return
		}
		if strict && !sample.CapturedAt.After(last) {
			s.mu.Unlock()
			return
		}
	}
	s.latest[sample.PartyRole] = sample.CapturedAt
	s.mu.Unlock()

	onRemote(sample)
}

// Unsubscribe stops delivery and releases the transport resources
func (s *subscription) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cleanup := s.cleanup
	s.mu.Unlock()

	if cleanup != nil {
		cleanup()
	}
}
