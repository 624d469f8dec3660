package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/batepapo-server/internal/chat"
	"github.com/vovakirdan/batepapo-server/internal/validate"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error   string               `json:"error"`
	Details []validate.Violation `json:"details,omitempty"`
}

// writeError maps domain errors to status codes. Anything unrecognized is a
// store failure and is reported as an opaque 500.
func writeError(c *gin.Context, logger *zerolog.Logger, err error) {
	var vErr *validate.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: vErr.Violations})
	case errors.Is(err, chat.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, chat.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, chat.ErrUnknownSender), errors.Is(err, chat.ErrInvalidLimit):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	default:
		logger.Error().Err(err).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetString(ContextKeyRequestID)).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
