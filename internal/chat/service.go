// Package chat implements the participant registry and the message log.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/batepapo-server/internal/store"
	"github.com/vovakirdan/batepapo-server/internal/validate"
)

var (
	// ErrConflict is returned when registering a name that is already present.
	ErrConflict = errors.New("participant already exists")
	// ErrNotFound is returned by Heartbeat for an unknown participant.
	ErrNotFound = errors.New("participant not found")
	// ErrUnknownSender is returned when the sender of a message is not registered.
	ErrUnknownSender = errors.New("sender is not a participant")
	// ErrInvalidLimit is returned for a limit that is not a positive integer.
	ErrInvalidLimit = errors.New("limit must be a positive integer")
)

const (
	// Everyone is the recipient of status messages.
	Everyone = "Todos"

	joinText  = "entra na sala..."
	leaveText = "sai da sala..."

	// clockLayout is a 12-hour wall clock without date.
	clockLayout = "03:04:05"
)

// Service provides registry and message log operations.
type Service struct {
	store store.Store
	now   func() time.Time
	log   *zerolog.Logger
}

// NewService creates a chat service. A nil now uses time.Now.
func NewService(st store.Store, now func() time.Time, logger *zerolog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store: st,
		now:   now,
		log:   logger,
	}
}

// Register creates a participant and announces it with a join status message.
// If the announcement cannot be stored the participant is removed again.
func (s *Service) Register(ctx context.Context, payload validate.ParticipantPayload) error {
	if err := validate.Participant(payload); err != nil {
		return err
	}
	name := payload.Name

	if _, err := s.store.GetParticipant(ctx, name); err == nil {
		return ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup participant: %w", err)
	}

	now := s.now()
	participant := &store.Participant{
		ID:         uuid.NewString(),
		Name:       name,
		LastStatus: now.UnixMilli(),
	}
	if err := s.store.CreateParticipant(ctx, participant); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return ErrConflict
		}
		return fmt.Errorf("create participant: %w", err)
	}

	if err := s.store.SaveMessage(ctx, StatusMessage(name, joinText, now)); err != nil {
		if _, delErr := s.store.DeleteParticipants(ctx, []string{name}); delErr != nil {
			s.log.Error().Err(delErr).Str("name", name).Msg("failed to roll back participant")
		}
		return fmt.Errorf("save join message: %w", err)
	}

	return nil
}

// ListParticipants returns all registered participants.
func (s *Service) ListParticipants(ctx context.Context) ([]*store.Participant, error) {
	participants, err := s.store.ListParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return participants, nil
}

// Heartbeat refreshes the participant's last activity time.
func (s *Service) Heartbeat(ctx context.Context, name string) error {
	if err := s.store.TouchParticipant(ctx, name, s.now().UnixMilli()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("touch participant: %w", err)
	}
	return nil
}

// PostMessage validates and appends a message from a registered participant.
func (s *Service) PostMessage(ctx context.Context, payload validate.MessagePayload) (*store.Message, error) {
	if err := validate.Message(payload); err != nil {
		return nil, err
	}

	if _, err := s.store.GetParticipant(ctx, payload.From); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownSender
		}
		return nil, fmt.Errorf("lookup sender: %w", err)
	}

	msg := &store.Message{
		ID:   newMessageID(),
		From: payload.From,
		To:   payload.To,
		Text: payload.Text,
		Type: store.MessageType(payload.Type),
		Time: FormatClock(s.now()),
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	return msg, nil
}

// ListMessages returns messages visible to requester, newest first.
// A limit of 0 returns everything.
func (s *Service) ListMessages(ctx context.Context, requester string, limit int) ([]*store.Message, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	messages, err := s.store.ListMessages(ctx, store.MessageQuery{Viewer: requester, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// ParseLimit converts the raw limit query value. Empty means no limit.
func ParseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, ErrInvalidLimit
	}
	return limit, nil
}

// StatusMessage builds a join/leave announcement addressed to everyone.
func StatusMessage(name, text string, at time.Time) *store.Message {
	return &store.Message{
		ID:   newMessageID(),
		From: name,
		To:   Everyone,
		Text: text,
		Type: store.MessageTypeStatus,
		Time: FormatClock(at),
	}
}

// LeaveMessage is the announcement appended when a participant is evicted.
func LeaveMessage(name string, at time.Time) *store.Message {
	return StatusMessage(name, leaveText, at)
}

// FormatClock renders t as hh:mm:ss on a 12-hour clock.
func FormatClock(t time.Time) string {
	return t.Format(clockLayout)
}

// newMessageID returns a time-ordered id so stores can sort by it.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
