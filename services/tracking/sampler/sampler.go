// Package sampler wraps a device position source behind a single-subscription
// sampling loop. It owns the acquisition timeout, stale-fix filtering and the
// error taxonomy surfaced to callers.
package sampler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tippyhq/tracking/internal/pkg/logger"
)

var (
	// ErrPermissionDenied is reported when the device refuses location access
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrPositionUnavailable is reported when the device cannot produce a fix
	ErrPositionUnavailable = errors.New("position unavailable")
	// ErrTimeout is reported when no fix arrives within the acquire timeout
	ErrTimeout = errors.New("position acquisition timed out")
)

// Fix is one raw reading from the device source
type Fix struct {
	Latitude   float64
	Longitude  float64
	Accuracy   float64
	Heading    *float64
	Speed      *float64
	CapturedAt time.Time
}

// Config controls acquisition behavior
type Config struct {
	// HighAccuracy requests the most precise positioning the device offers
	HighAccuracy bool
	// MaxSampleAge is the oldest cached fix the sampler will accept
	MaxSampleAge time.Duration
	// AcquireTimeout bounds the wait for the first fix
	AcquireTimeout time.Duration
}

// DefaultConfig mirrors the acquisition profile used by the mobile clients
func DefaultConfig() Config {
	return Config{
		HighAccuracy:   true,
		MaxSampleAge:   10 * time.Second,
		AcquireTimeout: 5 * time.Second,
	}
}

// Source abstracts the platform position provider. Watch begins a
// continuous stream of fixes and returns a release function that stops it.
// Implementations must not invoke callbacks after release returns.
type Source interface {
	Watch(ctx context.Context, cfg Config, onFix func(Fix), onError func(error)) (release func(), err error)
}

// FixFunc receives accepted fixes from the sampler
type FixFunc func(fix Fix)

// ErrorFunc receives sampling errors
type ErrorFunc func(err error)

// Sampler runs at most one active watch against its source. Starting while a
// watch is active returns the existing handle rather than opening a second
// stream.
type Sampler struct {
	source Source
	cfg    Config

	mu     sync.Mutex
	active *Handle
}

// New builds a sampler over the given source
func New(source Source, cfg Config) *Sampler {
	if cfg.MaxSampleAge <= 0 {
		cfg.MaxSampleAge = DefaultConfig().MaxSampleAge
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = DefaultConfig().AcquireTimeout
	}
	return &Sampler{source: source, cfg: cfg}
}

// Handle represents one active sampling session. Stop is idempotent; no
// callbacks are delivered after Stop returns.
type Handle struct {
	stopOnce sync.Once
	release  func()
	timer    *time.Timer

	mu      sync.Mutex
	stopped bool
	gotFix  bool

	onStop func()
}

// Stop ends the sampling session and releases the device watch
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()

		if h.timer != nil {
			h.timer.Stop()
		}
		if h.release != nil {
			h.release()
		}
		if h.onStop != nil {
			h.onStop()
		}
	})
}

// Start begins sampling. Accepted fixes flow to onFix; acquisition and device
// errors flow to onError. If a session is already active its handle is
// returned and no new watch is opened.
func (s *Sampler) Start(ctx context.Context, onFix FixFunc, onError ErrorFunc) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		logger.DebugCtx(ctx, "sampler already active, reusing handle")
		return s.active, nil
	}

	handle := &Handle{}
	handle.onStop = func() {
		s.mu.Lock()
		if s.active == handle {
			s.active = nil
		}
		s.mu.Unlock()
	}

	handle.timer = time.AfterFunc(s.cfg.AcquireTimeout, func() {
		handle.mu.Lock()
		fired := !handle.stopped && !handle.gotFix
		handle.mu.Unlock()
		if fired {
			onError(ErrTimeout)
		}
	})

	maxAge := s.cfg.MaxSampleAge
	release, err := s.source.Watch(ctx, s.cfg,
		func(fix Fix) {
			handle.mu.Lock()
			if handle.stopped {
				handle.mu.Unlock()
				return
			}
			if time.Since(fix.CapturedAt) > maxAge {
				handle.mu.Unlock()
				logger.DebugCtx(ctx, "discarding stale cached fix",
					logger.Time("captured_at", fix.CapturedAt))
				return
			}
			handle.gotFix = true
			handle.mu.Unlock()
			onFix(fix)
		},
		func(err error) {
			handle.mu.Lock()
			stopped := handle.stopped
			handle.mu.Unlock()
			if !stopped {
				onError(err)
			}
		},
	)
	if err != nil {
		handle.timer.Stop()
		return nil, err
	}

	handle.release = release
	s.active = handle
	return handle, nil
}
