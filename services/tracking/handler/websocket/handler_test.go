package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tippyhq/tracking/internal/pkg/models"
	"github.com/tippyhq/tracking/internal/pkg/websocket"
)

type captureTrackingUC struct {
	mu      sync.Mutex
	samples []*models.PositionSample
	err     error
}

func (c *captureTrackingUC) StartTracking(ctx context.Context, jobID string) error { return nil }
func (c *captureTrackingUC) StopTracking(ctx context.Context, jobID string) error  { return nil }
func (c *captureTrackingUC) UpdateStatus(ctx context.Context, jobID string, status models.TrackingStatus) error {
	return nil
}
func (c *captureTrackingUC) GetSession(ctx context.Context, jobID string) (*models.TrackingSession, error) {
	return nil, nil
}

func (c *captureTrackingUC) PublishSample(ctx context.Context, sample *models.PositionSample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.samples = append(c.samples, sample)
	return nil
}

func (c *captureTrackingUC) published() []*models.PositionSample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples
}

func setupHandler(uc *captureTrackingUC) *Handler {
	manager := websocket.NewManager(models.JWTConfig{Secret: "test-secret"})
	return NewHandler(manager, uc)
}

func locationPayload(t *testing.T, req locationUpdateRequest) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return data
}

func TestHandleLocationUpdate_PublishesSample(t *testing.T) {
	uc := &captureTrackingUC{}
	h := setupHandler(uc)

	client := &models.WebSocketClient{UserID: "provider-1", Role: "provider"}
	capturedAt := time.Now().UTC().Truncate(time.Millisecond)

	h.handleLocationUpdate(client, locationPayload(t, locationUpdateRequest{
		JobID:      "job-1",
		Latitude:   37.7749,
		Longitude:  -122.4194,
		Accuracy:   5,
		CapturedAt: capturedAt,
	}))

	samples := uc.published()
	require.Len(t, samples, 1)
	assert.Equal(t, "provider-1", samples[0].PartyID)
	assert.Equal(t, models.PartyRoleProvider, samples[0].PartyRole)
	assert.Equal(t, "job-1", samples[0].JobID)
	assert.True(t, samples[0].CapturedAt.Equal(capturedAt))
}

func TestHandleLocationUpdate_DefaultsCapturedAt(t *testing.T) {
	uc := &captureTrackingUC{}
	h := setupHandler(uc)

	client := &models.WebSocketClient{UserID: "customer-1", Role: "customer"}
	before := time.Now()

	h.handleLocationUpdate(client, locationPayload(t, locationUpdateRequest{
		JobID:     "job-1",
		Latitude:  37.7749,
		Longitude: -122.4194,
		Accuracy:  5,
	}))

	samples := uc.published()
	require.Len(t, samples, 1)
	assert.Equal(t, models.PartyRoleCustomer, samples[0].PartyRole)
	assert.False(t, samples[0].CapturedAt.Before(before.Truncate(time.Second)))
}

func TestHandleLocationUpdate_RejectsInvalidCoordinates(t *testing.T) {
	uc := &captureTrackingUC{}
	h := setupHandler(uc)

	client := &models.WebSocketClient{UserID: "provider-1", Role: "provider"}

	h.handleLocationUpdate(client, locationPayload(t, locationUpdateRequest{
		JobID:     "job-1",
		Latitude:  120, // out of range
		Longitude: -122.4194,
		Accuracy:  5,
	}))

	assert.Empty(t, uc.published())
}

func TestHandleLocationUpdate_RejectsUnknownRole(t *testing.T) {
	uc := &captureTrackingUC{}
	h := setupHandler(uc)

	client := &models.WebSocketClient{UserID: "user-1", Role: "admin"}

	h.handleLocationUpdate(client, locationPayload(t, locationUpdateRequest{
		JobID:     "job-1",
		Latitude:  37.7749,
		Longitude: -122.4194,
		Accuracy:  5,
	}))

	assert.Empty(t, uc.published())
}

func TestHandleLocationUpdate_MalformedPayload(t *testing.T) {
	uc := &captureTrackingUC{}
	h := setupHandler(uc)

	client := &models.WebSocketClient{UserID: "provider-1", Role: "provider"}

	h.handleLocationUpdate(client, json.RawMessage(`{"latitude":"not-a-number"}`))

	assert.Empty(t, uc.published())
}

func TestDispatch_PingDoesNotPublish(t *testing.T) {
	uc := &captureTrackingUC{}
	h := setupHandler(uc)

	client := &models.WebSocketClient{UserID: "provider-1", Role: "provider"}
	h.dispatch(client, &models.WSMessage{Event: "ping"})

	assert.Empty(t, uc.published())
}
