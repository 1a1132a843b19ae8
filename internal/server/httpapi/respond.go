// Package httpapi exposes the server's REST surface over gin: routing,
// middleware, and the single translation layer between service errors and
// HTTP responses.
package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/adarshn/notebox/internal/common"
)

// envelope is the uniform response body for every endpoint.
type envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data"`
	Errors  []string `json:"errors"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{
		Success: true,
		Message: message,
		Data:    data,
		Errors:  []string{},
	})
}

// statusForError maps the sentinel taxonomy to HTTP status codes. Anything
// unmatched is an internal error.
func statusForError(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// sentinelMessages are the fallbacks when an error carries no human suffix.
var sentinelMessages = map[int]string{
	http.StatusBadRequest:          "invalid request",
	http.StatusUnauthorized:        "unauthorized request",
	http.StatusForbidden:           "forbidden",
	http.StatusNotFound:            "not found",
	http.StatusConflict:            "already exists",
	http.StatusInternalServerError: "internal server error",
}

// userMessage extracts the human-readable part of a wrapped sentinel error
// ("validation error: all fields are required" -> "all fields are
// required").
func userMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return sentinelMessages[status]
	}

	for _, sentinel := range []error{
		common.ErrValidation, common.ErrUnauthorized, common.ErrInvalidToken,
		common.ErrForbidden, common.ErrNotFound, common.ErrAlreadyExists,
	} {
		prefix := sentinel.Error() + ": "
		if msg := err.Error(); strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return sentinelMessages[status]
}

// fail serializes an error through the envelope with its mapped status. The
// server's error middleware has already logged internals; handlers call this
// directly.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.log.Error(c.Request.Context(), "request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err.Error())
	}

	c.AbortWithStatusJSON(status, envelope{
		Success: false,
		Message: userMessage(err, status),
		Data:    nil,
		Errors:  []string{},
	})
}
