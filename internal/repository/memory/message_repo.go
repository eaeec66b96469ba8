package memory

import (
	"context"
	"errors"

	"github.com/fitmatch/coaching-api/internal/domain"
	"github.com/fitmatch/coaching-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageRepository implements repository.MessageRepository. The log is a
// slice in append order, so filtering it preserves (timestamp, seq) order.
type MessageRepository struct {
	s *Store
}

var _ repository.MessageRepository = (*MessageRepository)(nil)

func (r *MessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	if msg.SenderID.IsZero() || msg.ReceiverID.IsZero() {
		return errors.New("message requires senderId and receiverId")
	}

	release, record := r.s.write(ctx)
	defer release()

	ts := r.s.clock()
	if ts.Before(r.s.lastTS) {
		ts = r.s.lastTS
	}
	prevTS, prevSeq, prevLen := r.s.lastTS, r.s.seq, len(r.s.messages)

	r.s.seq++
	r.s.lastTS = ts
	msg.ID = primitive.NewObjectID()
	msg.Timestamp = ts
	msg.Seq = r.s.seq
	r.s.messages = append(r.s.messages, *msg)

	record(func() {
		r.s.messages = r.s.messages[:prevLen]
		r.s.lastTS, r.s.seq = prevTS, prevSeq
	})
	return nil
}

func (r *MessageRepository) Conversation(ctx context.Context, userA, userB primitive.ObjectID) ([]domain.Message, error) {
	return r.filter(ctx, func(m *domain.Message) bool { return m.Involves(userA, userB) })
}

func (r *MessageRepository) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Message, error) {
	return r.filter(ctx, func(m *domain.Message) bool {
		return m.SenderID == userID || m.ReceiverID == userID
	})
}

func (r *MessageRepository) filter(ctx context.Context, match func(*domain.Message) bool) ([]domain.Message, error) {
	defer r.s.read(ctx)()

	out := make([]domain.Message, 0)
	for i := range r.s.messages {
		if match(&r.s.messages[i]) {
			out = append(out, r.s.messages[i])
		}
	}
	return out, nil
}
