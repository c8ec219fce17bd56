package handler

import (
	"github.com/labstack/echo/v4"

	"wacrm-bridge/internal/ws"
)

// Register mounts the gateway routes under /whatsapp.
func (h *Handler) Register(e *echo.Echo, hub *ws.Hub, allowOrigins []string) {
	g := e.Group("/whatsapp")

	g.POST("/init-session", h.InitSession)
	g.POST("/send-message", h.SendMessage)
	g.GET("/qr/:sessionId", h.GetQR)
	g.GET("/status/:sessionId", h.GetStatus)
	g.GET("/health/", h.Health)
	g.GET("/health", h.Health)

	if hub != nil {
		g.GET("/ws", WebSocketHandler(hub, allowOrigins, h.log.With().Str("component", "ws").Logger()))
	}
}
