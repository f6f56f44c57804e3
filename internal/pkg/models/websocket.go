package models

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
)

// WSMessage represents a WebSocket message structure
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WSErrorMessage represents an error message sent over WebSocket
type WSErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WebSocketClient represents an authenticated WebSocket connection
type WebSocketClient struct {
	UserID string
	Role   string
	Conn   *websocket.Conn
}

// WebSocketClaims are the JWT claims carried by WebSocket clients
type WebSocketClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
