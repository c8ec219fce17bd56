package handler

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"wacrm-bridge/internal/model"
)

// SessionService is the part of the session manager the gateway drives.
type SessionService interface {
	Restore(ctx context.Context, requestedID string) (*model.Session, error)
	Send(ctx context.Context, sessionID, number, text string) error
	Session(sessionID string) (*model.Session, bool)
	QR(sessionID string) (string, bool)
}

type Handler struct {
	sessions SessionService
	log      zerolog.Logger
}

func New(sessions SessionService, log zerolog.Logger) *Handler {
	return &Handler{sessions: sessions, log: log}
}

type InitSessionRequest struct {
	SessionID string `json:"sessionId"`
}

// POST /whatsapp/init-session
func (h *Handler) InitSession(c echo.Context) error {
	var req InitSessionRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Cuerpo de la solicitud inválido")
	}

	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		return errorResponse(c, http.StatusBadRequest, "Se requiere un sessionId")
	}

	// the client keeps running after this request ends
	sess, err := h.sessions.Restore(context.WithoutCancel(c.Request().Context()), req.SessionID)
	if err != nil {
		h.log.Error().Err(err).Str("session", req.SessionID).Msg("init session failed")
		return failureResponse(c, http.StatusInternalServerError, err)
	}

	return successResponse(c, fmt.Sprintf("Sesión %s iniciada o restaurada. Escanea el QR en /whatsapp/qr/%s", sess.ID, sess.ID))
}

// GET /whatsapp/qr/:sessionId
func (h *Handler) GetQR(c echo.Context) error {
	img, ok := h.sessions.QR(c.Param("sessionId"))
	if !ok {
		return errorResponse(c, http.StatusNotFound, "QR no disponible. Inicia la sesión primero.")
	}
	return c.HTML(http.StatusOK, fmt.Sprintf(`<img src="%s" alt="QR Code">`, html.EscapeString(img)))
}

type StatusResponse struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
	JID       string `json:"jid,omitempty"`
}

// GET /whatsapp/status/:sessionId
func (h *Handler) GetStatus(c echo.Context) error {
	sess, ok := h.sessions.Session(c.Param("sessionId"))
	if !ok {
		return errorResponse(c, http.StatusNotFound, "Sesión no encontrada")
	}
	return c.JSON(http.StatusOK, StatusResponse{
		SessionID: sess.ID,
		State:     string(sess.State()),
		JID:       sess.JID(),
	})
}
