package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/batepapo-server/internal/chat"
	"github.com/vovakirdan/batepapo-server/internal/validate"
)

// MessageHandlers provides HTTP handlers for the message feed.
type MessageHandlers struct {
	svc *chat.Service
	log *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(svc *chat.Service, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		svc: svc,
		log: logger,
	}
}

// PostMessageRequest represents the post message request body.
type PostMessageRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// Post appends a message from the caller.
// POST /messages
func (h *MessageHandlers) Post(c *gin.Context) {
	from, ok := participantFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid message request")
		writeError(c, h.log, validate.Malformed(err))
		return
	}

	msg, err := h.svc.PostMessage(c.Request.Context(), validate.MessagePayload{
		From: from,
		To:   req.To,
		Text: req.Text,
		Type: req.Type,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.log.Debug().Str("from", msg.From).Str("to", msg.To).Str("type", string(msg.Type)).Msg("message posted")
	c.Status(http.StatusCreated)
}

// List returns the messages visible to the caller, newest first.
// GET /messages?limit=N
func (h *MessageHandlers) List(c *gin.Context) {
	viewer, ok := participantFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	limit, err := chat.ParseLimit(c.Query("limit"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	messages, err := h.svc.ListMessages(c.Request.Context(), viewer, limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}
