// Package mongodb implements store.Store over MongoDB collections
// "participants" and "messages".
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vovakirdan/batepapo-server/internal/store"
)

const (
	participantsCollection = "participants"
	messagesCollection     = "messages"

	disconnectTimeout = 5 * time.Second
)

// MongoStore implements store.Store for MongoDB.
type MongoStore struct {
	client       *mongo.Client
	participants *mongo.Collection
	messages     *mongo.Collection
}

var _ store.Store = (*MongoStore)(nil)

// New connects to uri, verifies the connection and ensures the unique index
// on participant names.
func New(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:       client,
		participants: db.Collection(participantsCollection),
		messages:     db.Collection(messagesCollection),
	}

	_, err = s.participants.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_participant_name"),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ensure participant index: %w", err)
	}

	return s, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ==== ParticipantStore implementation ====

// CreateParticipant inserts p, mapping duplicate key errors to store.ErrDuplicate.
func (s *MongoStore) CreateParticipant(ctx context.Context, p *store.Participant) error {
	if _, err := s.participants.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert participant %q: %w", p.Name, store.ErrDuplicate)
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// GetParticipant finds one participant by name.
func (s *MongoStore) GetParticipant(ctx context.Context, name string) (*store.Participant, error) {
	var p store.Participant
	if err := s.participants.FindOne(ctx, bson.M{"name": name}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("participant %q: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("find participant: %w", err)
	}
	return &p, nil
}

// ListParticipants returns every participant document.
func (s *MongoStore) ListParticipants(ctx context.Context) ([]*store.Participant, error) {
	cursor, err := s.participants.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find participants: %w", err)
	}

	participants := make([]*store.Participant, 0)
	if err := cursor.All(ctx, &participants); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}
	return participants, nil
}

// TouchParticipant sets lastStatus on the named participant.
func (s *MongoStore) TouchParticipant(ctx context.Context, name string, lastStatus int64) error {
	res, err := s.participants.UpdateOne(ctx,
		bson.M{"name": name},
		bson.M{"$set": bson.M{"lastStatus": lastStatus}},
	)
	if err != nil {
		return fmt.Errorf("update participant: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("participant %q: %w", name, store.ErrNotFound)
	}
	return nil
}

// DeleteParticipants removes the named participants with one deleteMany.
func (s *MongoStore) DeleteParticipants(ctx context.Context, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}

	res, err := s.participants.DeleteMany(ctx, bson.M{"name": bson.M{"$in": names}})
	if err != nil {
		return 0, fmt.Errorf("delete participants: %w", err)
	}
	return res.DeletedCount, nil
}

// ==== MessageStore implementation ====

// SaveMessage inserts msg. Its time-ordered _id defines the log order.
func (s *MongoStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages returns messages visible to q.Viewer, newest first.
func (s *MongoStore) ListMessages(ctx context.Context, q store.MessageQuery) ([]*store.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.messages.Find(ctx, visibilityFilter(q.Viewer), opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}

	messages := make([]*store.Message, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return messages, nil
}

func visibilityFilter(viewer string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"type": store.MessageTypeMessage},
		bson.M{"type": store.MessageTypeStatus},
		bson.M{"type": store.MessageTypePrivate, "from": viewer},
		bson.M{"type": store.MessageTypePrivate, "to": viewer},
	}}
}
