package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tippyhq/tracking/internal/pkg/models"
	"github.com/tippyhq/tracking/services/tracking"
	"github.com/tippyhq/tracking/services/tracking/usecase"
)

type stubTrackingUC struct {
	startErr  error
	stopErr   error
	updateErr error
	session   *models.TrackingSession
	getErr    error

	lastJobID  string
	lastStatus models.TrackingStatus
}

func (s *stubTrackingUC) StartTracking(ctx context.Context, jobID string) error {
	s.lastJobID = jobID
	return s.startErr
}

func (s *stubTrackingUC) StopTracking(ctx context.Context, jobID string) error {
	s.lastJobID = jobID
	return s.stopErr
}

func (s *stubTrackingUC) UpdateStatus(ctx context.Context, jobID string, status models.TrackingStatus) error {
	s.lastJobID = jobID
	s.lastStatus = status
	return s.updateErr
}

func (s *stubTrackingUC) GetSession(ctx context.Context, jobID string) (*models.TrackingSession, error) {
	return s.session, s.getErr
}

func (s *stubTrackingUC) PublishSample(ctx context.Context, sample *models.PositionSample) error {
	return nil
}

type stubPermissionUC struct {
	perm          *models.LocationPermission
	grantErr      error
	revokeErr     error
	revoked       []uuid.UUID
	lastRequester string
	active        bool
}

func (s *stubPermissionUC) Grant(ctx context.Context, grantorID, granteeID, jobID string, expiresAt time.Time) (*models.LocationPermission, error) {
	if s.grantErr != nil {
		return nil, s.grantErr
	}
	return s.perm, nil
}

func (s *stubPermissionUC) Revoke(ctx context.Context, permissionID uuid.UUID, requesterID string) error {
	s.lastRequester = requesterID
	if s.revokeErr != nil {
		return s.revokeErr
	}
	s.revoked = append(s.revoked, permissionID)
	return nil
}

func (s *stubPermissionUC) IsActive(ctx context.Context, grantorID, granteeID, jobID string, now time.Time) (bool, error) {
	return s.active, nil
}

func (s *stubPermissionUC) HasActiveGrant(ctx context.Context, grantorID, jobID string, now time.Time) (bool, error) {
	return s.active, nil
}

func newTestContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "user-1")
	return c, rec
}

func TestStartTracking(t *testing.T) {
	uc := &stubTrackingUC{}
	h := NewHandler(uc, &stubPermissionUC{}, models.JWTConfig{})

	c, rec := newTestContext(t, http.MethodPost, "/v1/tracking/job-1/start", "")
	c.SetParamNames("jobID")
	c.SetParamValues("job-1")

	require.NoError(t, h.StartTracking(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "job-1", uc.lastJobID)
}

func TestStartTracking_Conflict(t *testing.T) {
	uc := &stubTrackingUC{startErr: tracking.ErrAlreadyTracking}
	h := NewHandler(uc, &stubPermissionUC{}, models.JWTConfig{})

	c, _ := newTestContext(t, http.MethodPost, "/v1/tracking/job-1/start", "")
	c.SetParamNames("jobID")
	c.SetParamValues("job-1")

	err := h.StartTracking(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusConflict, httpErr.Code)
}

func TestStopTracking(t *testing.T) {
	uc := &stubTrackingUC{}
	h := NewHandler(uc, &stubPermissionUC{}, models.JWTConfig{})

	c, rec := newTestContext(t, http.MethodPost, "/v1/tracking/job-1/stop", "")
	c.SetParamNames("jobID")
	c.SetParamValues("job-1")

	require.NoError(t, h.StopTracking(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUpdateStatus(t *testing.T) {
	uc := &stubTrackingUC{}
	h := NewHandler(uc, &stubPermissionUC{}, models.JWTConfig{})

	c, rec := newTestContext(t, http.MethodPut, "/v1/tracking/job-1/status", `{"status":"ARRIVED"}`)
	c.SetParamNames("jobID")
	c.SetParamValues("job-1")

	require.NoError(t, h.UpdateStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.TrackingStatusArrived, uc.lastStatus)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	uc := &stubTrackingUC{updateErr: tracking.ErrInvalidTransition}
	h := NewHandler(uc, &stubPermissionUC{}, models.JWTConfig{})

	c, _ := newTestContext(t, http.MethodPut, "/v1/tracking/job-1/status", `{"status":"COMPLETED"}`)
	c.SetParamNames("jobID")
	c.SetParamValues("job-1")

	err := h.UpdateStatus(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.Code)
}

func TestUpdateStatus_SessionNotFound(t *testing.T) {
	uc := &stubTrackingUC{updateErr: tracking.ErrSessionNotFound}
	h := NewHandler(uc, &stubPermissionUC{}, models.JWTConfig{})

	c, _ := newTestContext(t, http.MethodPut, "/v1/tracking/job-1/status", `{"status":"ARRIVED"}`)
	c.SetParamNames("jobID")
	c.SetParamValues("job-1")

	err := h.UpdateStatus(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestGetSession(t *testing.T) {
	eta := 5
	uc := &stubTrackingUC{session: &models.TrackingSession{
		JobID:      "job-1",
		Status:     models.TrackingStatusTraveling,
		ETAMinutes: &eta,
	}}
	h := NewHandler(uc, &stubPermissionUC{}, models.JWTConfig{})

	c, rec := newTestContext(t, http.MethodGet, "/v1/tracking/job-1", "")
	c.SetParamNames("jobID")
	c.SetParamValues("job-1")

	require.NoError(t, h.GetSession(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var got models.TrackingSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "job-1", got.JobID)
	require.NotNil(t, got.ETAMinutes)
	assert.Equal(t, 5, *got.ETAMinutes)
}

func TestGetSession_NotFound(t *testing.T) {
	uc := &stubTrackingUC{getErr: tracking.ErrSessionNotFound}
	h := NewHandler(uc, &stubPermissionUC{}, models.JWTConfig{})

	c, _ := newTestContext(t, http.MethodGet, "/v1/tracking/missing", "")
	c.SetParamNames("jobID")
	c.SetParamValues("missing")

	err := h.GetSession(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestGrantPermission(t *testing.T) {
	perm := &models.LocationPermission{
		ID:     uuid.New(),
		Status: models.PermissionStatusActive,
	}
	h := NewHandler(&stubTrackingUC{}, &stubPermissionUC{perm: perm}, models.JWTConfig{})

	body := `{"grantee_id":"provider-1","job_id":"job-1","expires_at":"2030-01-01T00:00:00Z"}`
	c, rec := newTestContext(t, http.MethodPost, "/v1/permissions", body)

	require.NoError(t, h.GrantPermission(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var got models.LocationPermission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, perm.ID, got.ID)
}

func TestRevokePermission(t *testing.T) {
	permUC := &stubPermissionUC{}
	h := NewHandler(&stubTrackingUC{}, permUC, models.JWTConfig{})

	id := uuid.New()
	c, rec := newTestContext(t, http.MethodDelete, "/v1/permissions/"+id.String(), "")
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	require.NoError(t, h.RevokePermission(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, permUC.revoked, 1)
	assert.Equal(t, id, permUC.revoked[0])
	assert.Equal(t, "user-1", permUC.lastRequester)
}

func TestRevokePermission_NotGrantor(t *testing.T) {
	permUC := &stubPermissionUC{revokeErr: usecase.ErrNotGrantor}
	h := NewHandler(&stubTrackingUC{}, permUC, models.JWTConfig{})

	id := uuid.New()
	c, _ := newTestContext(t, http.MethodDelete, "/v1/permissions/"+id.String(), "")
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	err := h.RevokePermission(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
	assert.Empty(t, permUC.revoked)
}

func TestRevokePermission_InvalidID(t *testing.T) {
	h := NewHandler(&stubTrackingUC{}, &stubPermissionUC{}, models.JWTConfig{})

	c, _ := newTestContext(t, http.MethodDelete, "/v1/permissions/not-a-uuid", "")
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.RevokePermission(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestCheckPermission(t *testing.T) {
	h := NewHandler(&stubTrackingUC{}, &stubPermissionUC{active: true}, models.JWTConfig{})

	c, rec := newTestContext(t, http.MethodGet, "/v1/permissions/check?grantor_id=customer-1&job_id=job-1", "")

	require.NoError(t, h.CheckPermission(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"active":true}`, rec.Body.String())
}

func TestCheckPermission_MissingParams(t *testing.T) {
	h := NewHandler(&stubTrackingUC{}, &stubPermissionUC{}, models.JWTConfig{})

	c, _ := newTestContext(t, http.MethodGet, "/v1/permissions/check", "")

	err := h.CheckPermission(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}
