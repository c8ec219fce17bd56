package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// errorResponse is the validation/lookup failure shape: {error}.
func errorResponse(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{"error": message})
}

// failureResponse is used when an operation was attempted and failed.
func failureResponse(c echo.Context, status int, err error) error {
	return c.JSON(status, echo.Map{"success": false, "error": err.Error()})
}

func successResponse(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": message})
}

// HTTPErrorHandler renders errors escaping a handler, including echo's own
// 404/405, as {success:false, error}.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal Server Error"
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		message = fmt.Sprintf("%v", he.Message)
	}

	response := echo.Map{
		"success": false,
		"error":   message,
	}
	switch code {
	case http.StatusMethodNotAllowed:
		response["message"] = "Method not allowed for this endpoint"
	case http.StatusNotFound:
		response["message"] = "Endpoint not found"
	}

	_ = c.JSON(code, response)
}
