package ws

import "time"

const (
	EventSessionQR           = "SESSION_QR"
	EventSessionReady        = "SESSION_READY"
	EventSessionDisconnected = "SESSION_DISCONNECTED"
	EventCRMInteraction      = "CRM_INTERACTION"
)

// WsEvent is the envelope pushed to every websocket listener.
type WsEvent struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type SessionStatusData struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
	Phone     string `json:"phoneNumber,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type QRGeneratedData struct {
	SessionID string `json:"sessionId"`
	Image     string `json:"image"`
}

type InteractionData struct {
	SessionID string `json:"sessionId"`
	Phone     string `json:"phoneNumber"`
	Type      string `json:"type"`
}
