// Package http exposes the tracking REST surface
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/tippyhq/tracking/internal/pkg/middleware"
	"github.com/tippyhq/tracking/internal/pkg/models"
	"github.com/tippyhq/tracking/services/tracking"
	"github.com/tippyhq/tracking/services/tracking/usecase"
)

// Handler serves the tracking and permission endpoints
type Handler struct {
	trackingUC   tracking.TrackingUC
	permissionUC tracking.PermissionUC
	jwtCfg       models.JWTConfig
}

// NewHandler creates the REST handler
func NewHandler(trackingUC tracking.TrackingUC, permissionUC tracking.PermissionUC, jwtCfg models.JWTConfig) *Handler {
	return &Handler{
		trackingUC:   trackingUC,
		permissionUC: permissionUC,
		jwtCfg:       jwtCfg,
	}
}

// RegisterRoutes attaches all endpoints behind JWT auth
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/v1", middleware.JWTMiddleware(h.jwtCfg))

	v1.POST("/tracking/:jobID/start", h.StartTracking)
	v1.POST("/tracking/:jobID/stop", h.StopTracking)
	v1.PUT("/tracking/:jobID/status", h.UpdateStatus)
	v1.GET("/tracking/:jobID", h.GetSession)

	v1.POST("/permissions", h.GrantPermission)
	v1.DELETE("/permissions/:id", h.RevokePermission)
	v1.GET("/permissions/check", h.CheckPermission)
}

// StartTracking opens a live session for the job
func (h *Handler) StartTracking(c echo.Context) error {
	jobID := c.Param("jobID")

	err := h.trackingUC.StartTracking(c.Request().Context(), jobID)
	if errors.Is(err, tracking.ErrAlreadyTracking) {
		return echo.NewHTTPError(http.StatusConflict, "tracking already active for job")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to start tracking")
	}
	return c.JSON(http.StatusCreated, map[string]string{"job_id": jobID, "status": string(models.TrackingStatusTraveling)})
}

// StopTracking tears down the session; stopping an unknown job succeeds
func (h *Handler) StopTracking(c echo.Context) error {
	jobID := c.Param("jobID")

	if err := h.trackingUC.StopTracking(c.Request().Context(), jobID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to stop tracking")
	}
	return c.NoContent(http.StatusNoContent)
}

type updateStatusRequest struct {
	Status models.TrackingStatus `json:"status"`
}

// UpdateStatus applies a lifecycle transition
func (h *Handler) UpdateStatus(c echo.Context) error {
	jobID := c.Param("jobID")

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := h.trackingUC.UpdateStatus(c.Request().Context(), jobID, req.Status)
	switch {
	case errors.Is(err, tracking.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "tracking session not found")
	case errors.Is(err, tracking.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update status")
	}
	return c.JSON(http.StatusOK, map[string]string{"job_id": jobID, "status": string(req.Status)})
}

// GetSession returns the live session state
func (h *Handler) GetSession(c echo.Context) error {
	jobID := c.Param("jobID")

	sess, err := h.trackingUC.GetSession(c.Request().Context(), jobID)
	if errors.Is(err, tracking.ErrSessionNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "tracking session not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get session")
	}
	return c.JSON(http.StatusOK, sess)
}

type grantPermissionRequest struct {
	GranteeID string    `json:"grantee_id"`
	JobID     string    `json:"job_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GrantPermission issues a location-sharing permission from the caller to
// the grantee for one job
func (h *Handler) GrantPermission(c echo.Context) error {
	var req grantPermissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	grantorID := middleware.CurrentUserID(c)
	perm, err := h.permissionUC.Grant(c.Request().Context(), grantorID, req.GranteeID, req.JobID, req.ExpiresAt)
	if errors.Is(err, usecase.ErrInvalidGrant) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to grant permission")
	}
	return c.JSON(http.StatusCreated, perm)
}

// RevokePermission marks the permission revoked. Only the grantor may
// revoke; revoking an already inactive permission succeeds.
func (h *Handler) RevokePermission(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid permission id")
	}

	requesterID := middleware.CurrentUserID(c)
	err = h.permissionUC.Revoke(c.Request().Context(), id, requesterID)
	if errors.Is(err, usecase.ErrNotGrantor) {
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to revoke permission")
	}
	return c.NoContent(http.StatusNoContent)
}

// CheckPermission reports whether the caller may currently see the
// grantor's position for a job
func (h *Handler) CheckPermission(c echo.Context) error {
	grantorID := c.QueryParam("grantor_id")
	jobID := c.QueryParam("job_id")
	if grantorID == "" || jobID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "grantor_id and job_id are required")
	}

	granteeID := middleware.CurrentUserID(c)
	active, err := h.permissionUC.IsActive(c.Request().Context(), grantorID, granteeID, jobID, time.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to check permission")
	}
	return c.JSON(http.StatusOK, map[string]bool{"active": active})
}
