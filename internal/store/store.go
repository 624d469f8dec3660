package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a lookup or update matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key (participant name) already exists.
	ErrDuplicate = errors.New("duplicate record")
)

// Participant is a named chat session with its last activity time.
type Participant struct {
	ID         string `json:"_id" bson:"_id"`
	Name       string `json:"name" bson:"name"`
	LastStatus int64  `json:"lastStatus" bson:"lastStatus"` // unix milliseconds
}

// MessageType classifies a message for visibility.
type MessageType string

const (
	MessageTypeMessage MessageType = "message"
	MessageTypePrivate MessageType = "private_message"
	MessageTypeStatus  MessageType = "status"
)

// Message is an immutable entry of the message log.
type Message struct {
	ID   string      `json:"_id" bson:"_id"`
	From string      `json:"from" bson:"from"`
	To   string      `json:"to" bson:"to"`
	Text string      `json:"text" bson:"text"`
	Type MessageType `json:"type" bson:"type"`
	Time string      `json:"time" bson:"time"`
}

// VisibleTo reports whether viewer may read m. Public and status messages are
// visible to everyone, private ones only to their sender and recipient.
func (m *Message) VisibleTo(viewer string) bool {
	if m.Type != MessageTypePrivate {
		return true
	}
	return m.From == viewer || m.To == viewer
}

// MessageQuery selects messages for a viewer.
type MessageQuery struct {
	Viewer string
	// Limit caps the number of returned messages; 0 means no limit.
	Limit int
}

// ParticipantStore handles participant persistence.
type ParticipantStore interface {
	// CreateParticipant inserts p. Returns ErrDuplicate if the name is taken.
	CreateParticipant(ctx context.Context, p *Participant) error

	// GetParticipant retrieves a participant by name. Returns ErrNotFound if absent.
	GetParticipant(ctx context.Context, name string) (*Participant, error)

	// ListParticipants returns every participant in no particular order.
	ListParticipants(ctx context.Context) ([]*Participant, error)

	// TouchParticipant sets lastStatus. Returns ErrNotFound if absent.
	TouchParticipant(ctx context.Context, name string, lastStatus int64) error

	// DeleteParticipants removes all participants with the given names in one operation.
	DeleteParticipants(ctx context.Context, names []string) (int64, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage appends msg to the log.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages returns messages visible to q.Viewer, newest first.
	ListMessages(ctx context.Context, q MessageQuery) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	ParticipantStore
	MessageStore

	// Close releases the underlying connection.
	Close() error
}
