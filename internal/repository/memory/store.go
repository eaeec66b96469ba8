// Package memory is an in-process backend: every entity type lives in a map
// keyed by id, guarded by one store lock. Transactions hold the write lock for
// their whole duration and undo their writes on failure.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fitmatch/coaching-api/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu       sync.RWMutex
	users    map[primitive.ObjectID]*domain.User
	requests map[primitive.ObjectID]*domain.ConnectionRequest
	plans    map[primitive.ObjectID]*domain.Plan
	messages []domain.Message
	seq      int64
	lastTS   time.Time
	now      func() time.Time
}

type Option func(*Store)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		users:    make(map[primitive.ObjectID]*domain.User),
		requests: make(map[primitive.ObjectID]*domain.ConnectionRequest),
		plans:    make(map[primitive.ObjectID]*domain.Plan),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type txKey struct{}

type tx struct {
	store *Store
	undo  []func()
}

func (s *Store) txFrom(ctx context.Context) *tx {
	t, ok := ctx.Value(txKey{}).(*tx)
	if !ok || t.store != s {
		return nil
	}
	return t
}

// WithinTransaction implements repository.Transactor.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.txFrom(ctx) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{store: s}
	defer func() {
		if r := recover(); r != nil {
			t.rollback()
			panic(r)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		t.rollback()
	}
	return err
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func noop() {}

// read acquires the shared lock unless ctx already holds the write lock.
func (s *Store) read(ctx context.Context) func() {
	if s.txFrom(ctx) != nil {
		return noop
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// write acquires the exclusive lock unless ctx already holds it. The returned
// record function registers an undo step when running inside a transaction.
func (s *Store) write(ctx context.Context) (release func(), record func(func())) {
	if t := s.txFrom(ctx); t != nil {
		return noop, func(undo func()) { t.undo = append(t.undo, undo) }
	}
	s.mu.Lock()
	return s.mu.Unlock, func(func()) {}
}

// UTC, millisecond precision, matching what BSON dates can hold.
func (s *Store) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// Users, Requests, Plans and Messages return repository views over the store.
func (s *Store) Users() *UserRepository       { return &UserRepository{s: s} }
func (s *Store) Requests() *RequestRepository { return &RequestRepository{s: s} }
func (s *Store) Plans() *PlanRepository       { return &PlanRepository{s: s} }
func (s *Store) Messages() *MessageRepository { return &MessageRepository{s: s} }
