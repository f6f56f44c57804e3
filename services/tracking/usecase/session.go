package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tippyhq/tracking/internal/pkg/logger"
	"github.com/tippyhq/tracking/internal/pkg/models"
	"github.com/tippyhq/tracking/internal/utils"
	"github.com/tippyhq/tracking/services/tracking"
	"github.com/tippyhq/tracking/services/tracking/eta"
)

const (
	// arrivalThresholdMeters triggers the ARRIVED transition while TRAVELING
	arrivalThresholdMeters = 50.0
	// nearbyThresholdMeters drives the coarse proximity flag
	nearbyThresholdMeters = 300.0

	routeTimeout = 3 * time.Second
)

// validTransitions is the complete session lifecycle. Anything not listed is
// rejected with ErrInvalidTransition.
var validTransitions = map[models.TrackingStatus][]models.TrackingStatus{
	models.TrackingStatusTraveling:  {models.TrackingStatusArrived, models.TrackingStatusCancelled},
	models.TrackingStatusArrived:    {models.TrackingStatusInProgress},
	models.TrackingStatusInProgress: {models.TrackingStatusCompleted},
}

func transitionAllowed(from, to models.TrackingStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// session is the live per-job tracking state. All fields are guarded by mu;
// the channel subscription callback and the API surface race against each
// other freely.
type session struct {
	mu              sync.Mutex
	model           models.TrackingSession
	sub             tracking.ChannelSubscription
	stopped         bool
	arrivedNotified bool
	lastRouteAt     time.Time
	routeInFlight   bool
}

// trackingUC owns the live sessions and drives the per-job state machine
// from incoming position samples
type trackingUC struct {
	channel      tracking.PositionChannel
	gateway      tracking.TrackingGW
	planner      tracking.RoutePlanner
	routeRefresh time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

// NewTrackingUC creates the tracking core. planner may be nil, in which case
// all estimates are straight-line.
func NewTrackingUC(channel tracking.PositionChannel, gateway tracking.TrackingGW, planner tracking.RoutePlanner, routeRefresh time.Duration) tracking.TrackingUC {
	if routeRefresh <= 0 {
		routeRefresh = 30 * time.Second
	}
	return &trackingUC{
		channel:      channel,
		gateway:      gateway,
		planner:      planner,
		routeRefresh: routeRefresh,
		sessions:     make(map[string]*session),
	}
}

// StartTracking opens a live session for the job and subscribes it to the
// position channel. Starting a job that already has a live session fails
// with ErrAlreadyTracking.
func (u *trackingUC) StartTracking(ctx context.Context, jobID string) error {
	if jobID == "" {
		return fmt.Errorf("job id is required")
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if _, exists := u.sessions[jobID]; exists {
		return tracking.ErrAlreadyTracking
	}

	sess := &session{
		model: models.TrackingSession{
			JobID:     jobID,
			Status:    models.TrackingStatusTraveling,
			UpdatedAt: time.Now().UTC(),
		},
	}

	sub, err := u.channel.Subscribe(ctx, jobID, func(sample *models.PositionSample) {
		u.onSample(sess, sample)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to position channel: %w", err)
	}
	sess.sub = sub
	u.sessions[jobID] = sess

	logger.InfoCtx(ctx, "tracking session started", logger.String("job_id", jobID))
	return nil
}

// StopTracking tears down the session for the job. Stopping an unknown job
// is a no-op.
func (u *trackingUC) StopTracking(ctx context.Context, jobID string) error {
	u.mu.Lock()
	sess, exists := u.sessions[jobID]
	if exists {
		delete(u.sessions, jobID)
	}
	u.mu.Unlock()

	if !exists {
		return nil
	}

	sess.mu.Lock()
	sess.stopped = true
	sub := sess.sub
	sess.sub = nil
	sess.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}

	logger.InfoCtx(ctx, "tracking session stopped", logger.String("job_id", jobID))
	return nil
}

// UpdateStatus applies a lifecycle transition. Invalid transitions leave the
// session untouched and return ErrInvalidTransition.
func (u *trackingUC) UpdateStatus(ctx context.Context, jobID string, status models.TrackingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", tracking.ErrInvalidTransition, status)
	}

	u.mu.Lock()
	sess, exists := u.sessions[jobID]
	u.mu.Unlock()
	if !exists {
		return tracking.ErrSessionNotFound
	}

	sess.mu.Lock()
	from := sess.model.Status
	if !transitionAllowed(from, status) {
		sess.mu.Unlock()
		logger.ErrorCtx(ctx, "rejected tracking status transition",
			logger.String("job_id", jobID),
			logger.String("from", string(from)),
			logger.String("to", string(status)))
		return fmt.Errorf("%w: %s -> %s", tracking.ErrInvalidTransition, from, status)
	}

	sess.model.Status = status
	sess.model.UpdatedAt = time.Now().UTC()

	var event *models.ArrivedEvent
	if status == models.TrackingStatusArrived && !sess.arrivedNotified {
		sess.arrivedNotified = true
		event = arrivedEventLocked(sess)
	}

	var sub tracking.ChannelSubscription
	if status.Terminal() {
		sub = sess.sub
		sess.sub = nil
	}
	sess.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if event != nil {
		u.publishArrived(ctx, event)
	}

	logger.InfoCtx(ctx, "tracking status updated",
		logger.String("job_id", jobID),
		logger.String("from", string(from)),
		logger.String("to", string(status)))
	return nil
}

// GetSession returns a copy of the live session state
func (u *trackingUC) GetSession(ctx context.Context, jobID string) (*models.TrackingSession, error) {
	u.mu.Lock()
	sess, exists := u.sessions[jobID]
	u.mu.Unlock()
	if !exists {
		return nil, tracking.ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return snapshotSession(&sess.model), nil
}

// snapshotSession deep-copies the session state so callers can hold or mutate
// the result without touching the live session
func snapshotSession(model *models.TrackingSession) *models.TrackingSession {
	copied := *model
	if model.ProviderPosition != nil {
		pos := *model.ProviderPosition
		copied.ProviderPosition = &pos
	}
	if model.CustomerPosition != nil {
		pos := *model.CustomerPosition
		copied.CustomerPosition = &pos
	}
	if model.ETAMinutes != nil {
		eta := *model.ETAMinutes
		copied.ETAMinutes = &eta
	}
	if model.DistanceMeters != nil {
		dist := *model.DistanceMeters
		copied.DistanceMeters = &dist
	}
	if model.ArrivalEstimateAt != nil {
		at := *model.ArrivalEstimateAt
		copied.ArrivalEstimateAt = &at
	}
	return &copied
}

// PublishSample forwards a locally sampled position onto the channel. The
// channel enforces the sharing permission.
func (u *trackingUC) PublishSample(ctx context.Context, sample *models.PositionSample) error {
	return u.channel.Publish(ctx, sample)
}

// onSample folds one remote sample into the session. The channel guarantees
// per-party CapturedAt ordering; a second guard here covers snapshot replays.
func (u *trackingUC) onSample(sess *session, sample *models.PositionSample) {
	sess.mu.Lock()
	if sess.stopped {
		sess.mu.Unlock()
		return
	}

	current := sess.positionForLocked(sample.PartyRole)
	if current != nil && sample.CapturedAt.Before(current.CapturedAt) {
		sess.mu.Unlock()
		return
	}
	sess.setPositionLocked(sample)
	sess.model.UpdatedAt = time.Now().UTC()

	var event *models.ArrivedEvent
	if sess.model.ProviderPosition != nil && sess.model.CustomerPosition != nil {
		event = u.recomputeLocked(sess)
	}
	refresh := u.shouldRefreshRouteLocked(sess)
	sess.mu.Unlock()

	if event != nil {
		u.publishArrived(context.Background(), event)
	}
	if refresh {
		go u.refreshRoute(sess)
	}
}

func (s *session) positionForLocked(role models.PartyRole) *models.PositionSample {
	if role == models.PartyRoleProvider {
		return s.model.ProviderPosition
	}
	return s.model.CustomerPosition
}

func (s *session) setPositionLocked(sample *models.PositionSample) {
	copied := *sample
	if sample.PartyRole == models.PartyRoleProvider {
		s.model.ProviderPosition = &copied
	} else {
		s.model.CustomerPosition = &copied
	}
}

// recomputeLocked refreshes distance, ETA and the nearby flag, and detects
// arrival. Returns the arrival event to publish, or nil.
func (u *trackingUC) recomputeLocked(sess *session) *models.ArrivedEvent {
	provider := utils.GeoPointFromSample(sess.model.ProviderPosition)
	customer := utils.GeoPointFromSample(sess.model.CustomerPosition)

	now := time.Now().UTC()
	estimate := eta.Straight(now, provider, customer, sess.model.ProviderPosition.Speed)

	sess.model.DistanceMeters = &estimate.DistanceMeters
	sess.model.IsNearby = estimate.DistanceMeters < nearbyThresholdMeters

	if sess.model.Status == models.TrackingStatusTraveling {
		minutes := estimate.Minutes
		arrivalAt := estimate.ArrivalAt
		sess.model.ETAMinutes = &minutes
		sess.model.ArrivalEstimateAt = &arrivalAt

		if estimate.DistanceMeters < arrivalThresholdMeters && !sess.arrivedNotified {
			sess.arrivedNotified = true
			sess.model.Status = models.TrackingStatusArrived
			sess.model.UpdatedAt = now
			return arrivedEventLocked(sess)
		}
	}
	return nil
}

func arrivedEventLocked(sess *session) *models.ArrivedEvent {
	event := &models.ArrivedEvent{
		Type:      models.ArrivedEventType,
		JobID:     sess.model.JobID,
		ArrivedAt: time.Now().UTC(),
	}
	if sess.model.ProviderPosition != nil {
		event.ProviderID = sess.model.ProviderPosition.PartyID
	}
	if sess.model.CustomerPosition != nil {
		event.CustomerID = sess.model.CustomerPosition.PartyID
	}
	return event
}

func (u *trackingUC) publishArrived(ctx context.Context, event *models.ArrivedEvent) {
	if err := u.gateway.PublishArrived(ctx, event); err != nil {
		logger.Error("failed to publish arrival event",
			logger.String("job_id", event.JobID),
			logger.Err(err))
	}
}

// shouldRefreshRouteLocked rate-limits routed estimates to one in-flight
// request per session and one per refresh window
func (u *trackingUC) shouldRefreshRouteLocked(sess *session) bool {
	if u.planner == nil || sess.routeInFlight {
		return false
	}
	if sess.model.Status != models.TrackingStatusTraveling {
		return false
	}
	if sess.model.ProviderPosition == nil || sess.model.CustomerPosition == nil {
		return false
	}
	if time.Since(sess.lastRouteAt) < u.routeRefresh {
		return false
	}
	sess.routeInFlight = true
	return true
}

// refreshRoute asks the routing collaborator for a road estimate. Any
// failure is silent and the straight-line figures stand.
func (u *trackingUC) refreshRoute(sess *session) {
	sess.mu.Lock()
	if sess.stopped || sess.model.ProviderPosition == nil || sess.model.CustomerPosition == nil {
		sess.routeInFlight = false
		sess.mu.Unlock()
		return
	}
	origin := utils.GeoPointFromSample(sess.model.ProviderPosition)
	destination := utils.GeoPointFromSample(sess.model.CustomerPosition)
	sess.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), routeTimeout)
	defer cancel()
	route, err := u.planner.Route(ctx, origin, destination)

	now := time.Now().UTC()
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.routeInFlight = false
	sess.lastRouteAt = now

	if err != nil || route == nil {
		return
	}
	if sess.stopped || sess.model.Status != models.TrackingStatusTraveling {
		return
	}

	estimate := eta.FromRoute(now, route)
	sess.model.DistanceMeters = &estimate.DistanceMeters
	sess.model.ETAMinutes = &estimate.Minutes
	sess.model.ArrivalEstimateAt = &estimate.ArrivalAt
	sess.model.UpdatedAt = now
}
