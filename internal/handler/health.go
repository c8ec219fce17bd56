package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GET /whatsapp/health/
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"msg": "Aplicacion corriendo sin problema."})
}
