// Package handlers provides HTTP API request handlers.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Message: message,
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// sendErr maps a domain error onto its HTTP status and error code.
func sendErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidArgument):
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, model.ErrSessionNotReady):
		sendError(c, http.StatusBadRequest, "SESSION_NOT_READY", err.Error())
	case errors.Is(err, model.ErrUnauthorized):
		sendError(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	case errors.Is(err, model.ErrForbidden):
		sendError(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, model.ErrMediaFetch):
		sendError(c, http.StatusBadGateway, "MEDIA_FETCH_ERROR", err.Error())
	case errors.Is(err, model.ErrDispatch):
		sendError(c, http.StatusBadGateway, "DISPATCH_ERROR", err.Error())
	default:
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// sendOK sends a success body carrying message plus any extra fields.
func sendOK(c *gin.Context, message string, extra gin.H) {
	body := gin.H{"success": true, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// bindError reports a malformed request body.
func bindError(c *gin.Context, err error) {
	sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
}
