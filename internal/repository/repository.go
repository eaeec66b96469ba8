package repository

import (
	"context"

	"github.com/fitmatch/coaching-api/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicateKey = RepositoryError("duplicate key")
	ErrConflict     = RepositoryError("concurrent modification")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Transactor runs fn so that every repository call made with the ctx passed to fn
// commits together or not at all. Readers never observe a partial fn.
// Nested calls join the outer transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	// Update replaces the profile fields of an existing user. Role, ID,
	// ActiveTrainerID and TrainerNotes are never written by Update.
	Update(ctx context.Context, user *domain.User) error
	SetActiveTrainer(ctx context.Context, clientID, trainerID primitive.ObjectID) error
	SetTrainerNotes(ctx context.Context, clientID primitive.ObjectID, notes string) error
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
	ListClientsByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error)
}

// RequestRepository stores connection requests.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.ConnectionRequest) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ConnectionRequest, error)
	// UpdateStatus applies the transition only if the stored status still equals from.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to domain.RequestStatus) error
	// ListByPair returns the pair's requests oldest first.
	ListByPair(ctx context.Context, clientID, trainerID primitive.ObjectID) ([]domain.ConnectionRequest, error)
	ListByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.ConnectionRequest, error)
	ListByTrainer(ctx context.Context, trainerID primitive.ObjectID, status domain.RequestStatus) ([]domain.ConnectionRequest, error)
}

// PlanRepository stores coaching plans.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error)
	GetActiveForClient(ctx context.Context, clientID primitive.ObjectID) (*domain.Plan, error)
	// CompleteActiveForClient marks every active plan of the client completed
	// and returns the ids it changed.
	CompleteActiveForClient(ctx context.Context, clientID primitive.ObjectID) ([]primitive.ObjectID, error)
	// ListByClient returns plans oldest first; an empty status matches all.
	ListByClient(ctx context.Context, clientID primitive.ObjectID, status domain.PlanStatus) ([]domain.Plan, error)
}

// MessageRepository is the append-only message log.
type MessageRepository interface {
	// Append assigns ID, Timestamp and Seq. Timestamps never decrease across the log.
	Append(ctx context.Context, msg *domain.Message) error
	Conversation(ctx context.Context, userA, userB primitive.ObjectID) ([]domain.Message, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Message, error)
}
