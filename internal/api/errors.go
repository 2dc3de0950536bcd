// errors.go - JSON error responses for the processing endpoint
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the JSON body returned on any request failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func respondError(c echo.Context, status int, summary, message string) error {
	return c.JSON(status, ErrorResponse{Error: summary, Message: message})
}

func badRequest(c echo.Context, summary, message string) error {
	return respondError(c, http.StatusBadRequest, summary, message)
}

func internalError(c echo.Context, message string) error {
	return respondError(c, http.StatusInternalServerError, "Internal Server Error", message)
}
