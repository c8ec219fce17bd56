package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"wacrm-bridge/internal/helper"
	"wacrm-bridge/internal/service"
)

type SendMessageRequest struct {
	SessionID string `json:"sessionId"`
	Number    string `json:"number"`
	Message   string `json:"message"`
}

// POST /whatsapp/send-message
func (h *Handler) SendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Cuerpo de la solicitud inválido")
	}

	if strings.TrimSpace(req.Number) == "" || req.Message == "" {
		return errorResponse(c, http.StatusBadRequest, "Se requieren number y message")
	}

	err := h.sessions.Send(c.Request().Context(), req.SessionID, req.Number, req.Message)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrSessionNotFound):
		return errorResponse(c, http.StatusBadRequest, "Sesión no encontrada. Inicia sesión primero.")
	case errors.Is(err, helper.ErrInvalidNumber):
		return errorResponse(c, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Str("session", req.SessionID).Msg("send message failed")
		return failureResponse(c, http.StatusInternalServerError, err)
	}

	return successResponse(c, fmt.Sprintf("Mensaje enviado a %s desde sesión %s", req.Number, req.SessionID))
}
