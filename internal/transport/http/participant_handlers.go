package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/batepapo-server/internal/chat"
	"github.com/vovakirdan/batepapo-server/internal/validate"
)

// ParticipantHandlers provides HTTP handlers for registration and presence.
type ParticipantHandlers struct {
	svc *chat.Service
	log *zerolog.Logger
}

// NewParticipantHandlers creates a new participant handlers instance.
func NewParticipantHandlers(svc *chat.Service, logger *zerolog.Logger) *ParticipantHandlers {
	return &ParticipantHandlers{
		svc: svc,
		log: logger,
	}
}

// Register handles participant registration.
// POST /participants
func (h *ParticipantHandlers) Register(c *gin.Context) {
	var req validate.ParticipantPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		writeError(c, h.log, validate.Malformed(err))
		return
	}

	if err := h.svc.Register(c.Request.Context(), req); err != nil {
		writeError(c, h.log, err)
		return
	}

	h.log.Info().Str("name", req.Name).Msg("participant registered")
	c.Status(http.StatusCreated)
}

// List returns every participant.
// GET /participants
func (h *ParticipantHandlers) List(c *gin.Context) {
	participants, err := h.svc.ListParticipants(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, participants)
}

// Heartbeat refreshes the caller's last status.
// POST /status
func (h *ParticipantHandlers) Heartbeat(c *gin.Context) {
	name, ok := participantFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.svc.Heartbeat(c.Request.Context(), name); err != nil {
		writeError(c, h.log, err)
		return
	}

	h.log.Debug().Str("name", name).Msg("heartbeat")
	c.Status(http.StatusOK)
}
