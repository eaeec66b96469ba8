package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/fitmatch/coaching-api/internal/assistant"
	"github.com/fitmatch/coaching-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestConversationRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, other := f.client(t, "A"), f.trainer(t, "B"), f.trainer(t, "Other")

	_, err := f.messaging.Send(ctx, a.ID, b.ID, "x")
	require.NoError(t, err)
	_, err = f.messaging.Send(ctx, a.ID, other.ID, "elsewhere")
	require.NoError(t, err)
	_, err = f.messaging.Send(ctx, b.ID, a.ID, "y")
	require.NoError(t, err)

	conv, err := f.messaging.Conversation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, "x", conv[0].Body)
	assert.Equal(t, "y", conv[1].Body)
	assert.False(t, conv[1].Timestamp.Before(conv[0].Timestamp))

	// Argument order does not matter.
	reversed, err := f.messaging.Conversation(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, conv, reversed)

	inbox, err := f.messaging.InboxFor(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, inbox, 3)
}

func TestSendBlankBodyLeavesLogUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.client(t, "A"), f.trainer(t, "B")

	_, err := f.messaging.Send(ctx, a.ID, b.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyBody)

	inbox, err := f.messaging.InboxFor(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, inbox)
	assert.NotContains(t, f.events.types(), domain.EventMessageSent)
}

func TestSendKeepsBodyAsWritten(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.client(t, "A"), f.trainer(t, "B")

	sent, err := f.messaging.Send(ctx, a.ID, b.ID, "  - squat\n")
	require.NoError(t, err)
	assert.Equal(t, "  - squat\n", sent.Body)

	conv, err := f.messaging.Conversation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.Len(t, conv, 1)
	assert.Equal(t, "  - squat\n", conv[0].Body)
}

func TestSendToUnknownUser(t *testing.T) {
	f := newFixture(t)
	a := f.client(t, "A")

	_, err := f.messaging.Send(context.Background(), a.ID, primitive.NewObjectID(), "hello")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type stubReplier struct {
	text    string
	err     error
	history []domain.Message
	name    string
}

func (s *stubReplier) GenerateReply(_ context.Context, history []domain.Message, name, _ string) (string, error) {
	s.history, s.name = history, name
	return s.text, s.err
}

func autoReplyFixture(t *testing.T, r assistant.Replier) (*fixture, *AutoReplier, *domain.User, *domain.User) {
	f := newFixture(t)
	c1, t1 := f.client(t, "C1"), f.trainer(t, "T1")
	f.connect(t, c1, t1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return f, NewAutoReplier(f.repos, f.messaging, r, logger), c1, t1
}

func TestAutoReplySendsAsTrainer(t *testing.T) {
	stub := &stubReplier{text: "Great work, add 2.5kg next week."}
	f, replier, c1, t1 := autoReplyFixture(t, stub)
	ctx := context.Background()

	msg, err := f.messaging.Send(ctx, c1.ID, t1.ID, "Did 5x5 today")
	require.NoError(t, err)
	require.NoError(t, replier.Handle(ctx, domain.NewMessageSent(*msg)))

	assert.Equal(t, "T1", stub.name)
	require.Len(t, stub.history, 1)

	conv, err := f.messaging.Conversation(ctx, c1.ID, t1.ID)
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, t1.ID, conv[1].SenderID)
	assert.Equal(t, stub.text, conv[1].Body)
}

func TestAutoReplyFallsBackOnFailure(t *testing.T) {
	f, replier, c1, t1 := autoReplyFixture(t, &stubReplier{err: errors.New("quota exceeded")})
	ctx := context.Background()

	msg, err := f.messaging.Send(ctx, c1.ID, t1.ID, "hi")
	require.NoError(t, err)
	require.NoError(t, replier.Handle(ctx, domain.NewMessageSent(*msg)))

	conv, err := f.messaging.Conversation(ctx, c1.ID, t1.ID)
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, assistant.OfflineReply, conv[1].Body)
}

func TestAutoReplyIgnoresUnpairedAndTrainerMessages(t *testing.T) {
	stub := &stubReplier{text: "reply"}
	f, replier, c1, t1 := autoReplyFixture(t, stub)
	ctx := context.Background()
	t2 := f.trainer(t, "T2")

	fromTrainer, err := f.messaging.Send(ctx, t1.ID, c1.ID, "How did it go?")
	require.NoError(t, err)
	require.NoError(t, replier.Handle(ctx, domain.NewMessageSent(*fromTrainer)))

	unpaired, err := f.messaging.Send(ctx, c1.ID, t2.ID, "Are you free?")
	require.NoError(t, err)
	require.NoError(t, replier.Handle(ctx, domain.NewMessageSent(*unpaired)))

	inbox, err := f.messaging.InboxFor(ctx, c1.ID)
	require.NoError(t, err)
	assert.Len(t, inbox, 2)
	assert.Empty(t, stub.name)
}
