package handler

import (
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"wacrm-bridge/internal/ws"
)

// newUpgrader accepts browsers from the configured CORS origins; "*"
// accepts any.
func newUpgrader(allowOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(allowOrigins, "*") {
				return true
			}
			return slices.Contains(allowOrigins, origin)
		},
	}
}

// WebSocketHandler streams session lifecycle events on /whatsapp/ws.
func WebSocketHandler(hub *ws.Hub, allowOrigins []string, log zerolog.Logger) echo.HandlerFunc {
	upgrader := newUpgrader(allowOrigins)

	return func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			log.Warn().Err(err).Msg("ws upgrade error")
			return nil
		}

		client := ws.NewClient(hub, conn)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()

		return nil
	}
}
