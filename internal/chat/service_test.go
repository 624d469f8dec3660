package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/batepapo-server/internal/log"
	"github.com/vovakirdan/batepapo-server/internal/store"
	"github.com/vovakirdan/batepapo-server/internal/store/sqlite"
	"github.com/vovakirdan/batepapo-server/internal/validate"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, store.Store, *fakeClock) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	clock := &fakeClock{t: time.Date(2024, 3, 1, 14, 5, 9, 0, time.UTC)}
	return NewService(st, clock.Now, log.Nop()), st, clock
}

func register(t *testing.T, svc *Service, name string) {
	t.Helper()
	require.NoError(t, svc.Register(context.Background(), validate.ParticipantPayload{Name: name}))
}

func post(t *testing.T, svc *Service, from, to, text, typ string) *store.Message {
	t.Helper()
	msg, err := svc.PostMessage(context.Background(), validate.MessagePayload{From: from, To: to, Text: text, Type: typ})
	require.NoError(t, err)
	return msg
}

func TestRegister_CreatesParticipantAndJoinMessage(t *testing.T) {
	svc, st, clock := newTestService(t)
	ctx := context.Background()

	register(t, svc, "ana")

	p, err := st.GetParticipant(ctx, "ana")
	require.NoError(t, err)
	require.Equal(t, clock.Now().UnixMilli(), p.LastStatus)
	require.NotEmpty(t, p.ID)

	msgs, err := st.ListMessages(ctx, store.MessageQuery{Viewer: "ana"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "ana", msgs[0].From)
	require.Equal(t, Everyone, msgs[0].To)
	require.Equal(t, "entra na sala...", msgs[0].Text)
	require.Equal(t, store.MessageTypeStatus, msgs[0].Type)
	require.Equal(t, "02:05:09", msgs[0].Time)
}

func TestRegister_DuplicateIsConflict(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "ana")
	err := svc.Register(ctx, validate.ParticipantPayload{Name: "ana"})
	require.ErrorIs(t, err, ErrConflict)

	participants, err := st.ListParticipants(ctx)
	require.NoError(t, err)
	require.Len(t, participants, 1)

	msgs, err := st.ListMessages(ctx, store.MessageQuery{})
	require.NoError(t, err)
	require.Len(t, msgs, 1, "no second join message")
}

func TestRegister_InvalidPayload(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.Register(context.Background(), validate.ParticipantPayload{})
	var vErr *validate.ValidationError
	require.ErrorAs(t, err, &vErr)
}

// failingMessages wraps a store and fails every SaveMessage.
type failingMessages struct {
	store.Store
}

func (failingMessages) SaveMessage(context.Context, *store.Message) error {
	return errors.New("disk full")
}

func TestRegister_RollsBackWhenJoinMessageFails(t *testing.T) {
	_, st, clock := newTestService(t)
	svc := NewService(failingMessages{Store: st}, clock.Now, log.Nop())
	ctx := context.Background()

	err := svc.Register(ctx, validate.ParticipantPayload{Name: "ana"})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrConflict)

	_, err = st.GetParticipant(ctx, "ana")
	require.ErrorIs(t, err, store.ErrNotFound)
}

// blindLookups wraps a store and never finds a participant by name, so
// duplicates are only caught by the store's unique constraint.
type blindLookups struct {
	store.Store
}

func (blindLookups) GetParticipant(_ context.Context, name string) (*store.Participant, error) {
	return nil, fmt.Errorf("participant %q: %w", name, store.ErrNotFound)
}

func TestRegister_UniqueViolationIsConflict(t *testing.T) {
	_, st, clock := newTestService(t)
	svc := NewService(blindLookups{Store: st}, clock.Now, log.Nop())
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, validate.ParticipantPayload{Name: "ana"}))

	err := svc.Register(ctx, validate.ParticipantPayload{Name: "ana"})
	require.ErrorIs(t, err, ErrConflict)

	participants, err := st.ListParticipants(ctx)
	require.NoError(t, err)
	require.Len(t, participants, 1)

	msgs, err := st.ListMessages(ctx, store.MessageQuery{})
	require.NoError(t, err)
	require.Len(t, msgs, 1, "no join message for the rejected registration")
}

func TestHeartbeat(t *testing.T) {
	svc, st, clock := newTestService(t)
	ctx := context.Background()

	require.ErrorIs(t, svc.Heartbeat(ctx, "ghost"), ErrNotFound)

	register(t, svc, "ana")
	before, err := st.GetParticipant(ctx, "ana")
	require.NoError(t, err)

	clock.Advance(3 * time.Second)
	require.NoError(t, svc.Heartbeat(ctx, "ana"))

	after, err := st.GetParticipant(ctx, "ana")
	require.NoError(t, err)
	require.GreaterOrEqual(t, after.LastStatus, before.LastStatus)
	require.Equal(t, clock.Now().UnixMilli(), after.LastStatus)
}

func TestPostMessage_UnknownSender(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.PostMessage(ctx, validate.MessagePayload{From: "ghost", To: "Todos", Text: "oi", Type: "message"})
	require.ErrorIs(t, err, ErrUnknownSender)

	msgs, err := st.ListMessages(ctx, store.MessageQuery{})
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestPostMessage_Invalid(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc, "ana")

	_, err := svc.PostMessage(context.Background(), validate.MessagePayload{From: "ana", Type: "status"})
	var vErr *validate.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Violations, 3)
}

func TestListMessages_LimitAndOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "ana")

	for _, text := range []string{"1", "2", "3", "4"} {
		post(t, svc, "ana", Everyone, text, "message")
	}

	// join message + 4 posts = 5 eligible messages
	all, err := svc.ListMessages(ctx, "ana", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)

	last2, err := svc.ListMessages(ctx, "ana", 2)
	require.NoError(t, err)
	require.Len(t, last2, 2)
	require.Equal(t, "4", last2[0].Text)
	require.Equal(t, "3", last2[1].Text)

	_, err = svc.ListMessages(ctx, "ana", -1)
	require.ErrorIs(t, err, ErrInvalidLimit)
}

func TestListMessages_PrivateVisibility(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for _, name := range []string{"ana", "bia", "caio"} {
		register(t, svc, name)
	}

	secret := post(t, svc, "ana", "bia", "segredo", "private_message")

	contains := func(viewer string) bool {
		msgs, err := svc.ListMessages(ctx, viewer, 0)
		require.NoError(t, err)
		for _, m := range msgs {
			if m.ID == secret.ID {
				return true
			}
		}
		return false
	}

	require.True(t, contains("ana"))
	require.True(t, contains("bia"))
	require.False(t, contains("caio"))
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "", want: 0},
		{raw: "  ", want: 0},
		{raw: "3", want: 3},
		{raw: "0", wantErr: true},
		{raw: "-2", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "1.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseLimit(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidLimit)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFormatClock(t *testing.T) {
	require.Equal(t, "11:59:01", FormatClock(time.Date(2024, 1, 1, 23, 59, 1, 0, time.UTC)))
	require.Equal(t, "12:00:00", FormatClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}
