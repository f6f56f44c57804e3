// Package websocket ingests device position streams and pushes tracking
// events back to connected parties
package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/tippyhq/tracking/internal/pkg/constants"
	"github.com/tippyhq/tracking/internal/pkg/logger"
	"github.com/tippyhq/tracking/internal/pkg/models"
	"github.com/tippyhq/tracking/internal/pkg/websocket"
	"github.com/tippyhq/tracking/services/tracking"
)

// Handler owns the WebSocket surface of the tracking service
type Handler struct {
	manager    *websocket.Manager
	trackingUC tracking.TrackingUC
}

// NewHandler creates the WebSocket handler
func NewHandler(manager *websocket.Manager, trackingUC tracking.TrackingUC) *Handler {
	return &Handler{
		manager:    manager,
		trackingUC: trackingUC,
	}
}

// RegisterRoutes attaches the WebSocket endpoint
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/tracking", h.HandleConnection)
}

// HandleConnection upgrades the request and runs the client loop
func (h *Handler) HandleConnection(c echo.Context) error {
	return h.manager.HandleConnection(c, h.handleClient)
}

func (h *Handler) handleClient(client *models.WebSocketClient, conn *gorilla.Conn) error {
	client.Conn = conn
	h.manager.AddClient(client)
	defer h.manager.RemoveClient(client.UserID)

	logger.Info("websocket client connected",
		logger.String("user_id", client.UserID),
		logger.String("role", client.Role))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if gorilla.IsUnexpectedCloseError(err, gorilla.CloseGoingAway, gorilla.CloseNormalClosure) {
				logger.Warn("websocket read failed",
					logger.String("user_id", client.UserID),
					logger.Err(err))
			}
			return nil
		}

		var msg models.WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.manager.SendErrorMessage(conn, constants.ErrorInvalidFormat, "invalid message format")
			continue
		}

		h.dispatch(client, &msg)
	}
}

func (h *Handler) dispatch(client *models.WebSocketClient, msg *models.WSMessage) {
	switch msg.Event {
	case constants.EventPing:
		h.manager.SendMessage(client.Conn, constants.EventPong, map[string]string{"status": "ok"})
	case constants.EventLocationUpdate:
		h.handleLocationUpdate(client, msg.Data)
	default:
		h.manager.SendErrorMessage(client.Conn, constants.ErrorInvalidFormat, "unknown event: "+msg.Event)
	}
}

type locationUpdateRequest struct {
	JobID      string    `json:"job_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	Heading    *float64  `json:"heading,omitempty"`
	Speed      *float64  `json:"speed,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// handleLocationUpdate turns a device report into a position sample and
// publishes it. The channel drops samples without an active sharing
// permission, so publish failures here are infrastructure errors only.
func (h *Handler) handleLocationUpdate(client *models.WebSocketClient, data json.RawMessage) {
	var req locationUpdateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.manager.SendErrorMessage(client.Conn, constants.ErrorInvalidFormat, "invalid location payload")
		return
	}

	role := models.PartyRole(strings.ToUpper(client.Role))
	if !role.Valid() {
		h.manager.SendErrorMessage(client.Conn, constants.ErrorUnauthorized, "unknown party role")
		return
	}

	capturedAt := req.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}

	sample := &models.PositionSample{
		PartyID:    client.UserID,
		PartyRole:  role,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Accuracy:   req.Accuracy,
		Heading:    req.Heading,
		Speed:      req.Speed,
		CapturedAt: capturedAt,
		JobID:      req.JobID,
	}
	if err := sample.Validate(); err != nil {
		h.manager.SendErrorMessage(client.Conn, constants.ErrorInvalidLocation, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.trackingUC.PublishSample(ctx, sample); err != nil {
		logger.Error("failed to publish location update",
			logger.String("user_id", client.UserID),
			logger.String("job_id", req.JobID),
			logger.Err(err))
		h.manager.SendErrorMessage(client.Conn, constants.ErrorInternalError, "failed to process location")
	}
}
