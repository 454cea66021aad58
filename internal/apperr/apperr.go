// Package apperr defines the request-terminal errors of the service and
// how each one is reported over HTTP.
package apperr

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("missing bearer token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrAccessDenied       = errors.New("access denied")
	ErrStorage            = errors.New("storage error")
	ErrInvalidInput       = errors.New("invalid input")
)

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrDuplicateUser), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrMissingToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrAccessDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text shown to clients. Storage and unknown errors are
// reduced to a generic message so internals never reach the caller.
func Message(err error) string {
	for _, known := range []error{
		ErrDuplicateUser, ErrInvalidCredentials, ErrMissingToken,
		ErrInvalidToken, ErrAccessDenied,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	if errors.Is(err, ErrInvalidInput) {
		return err.Error()
	}
	return "internal error"
}

// Body is the JSON error payload. The message key is what the browser client reads.
func Body(msg string) gin.H {
	return gin.H{"error": msg, "message": msg}
}

// Respond aborts the request with the mapped status and an error Body.
// Server-side failures are logged with the request path.
func Respond(c *gin.Context, err error) {
	status := Status(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, Body(Message(err)))
}
