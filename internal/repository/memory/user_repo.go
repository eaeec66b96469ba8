package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/fitmatch/coaching-api/internal/domain"
	"github.com/fitmatch/coaching-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRepository implements repository.UserRepository.
type UserRepository struct {
	s *Store
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	if user.Email == "" || user.PasswordHash == "" || user.Role == "" {
		return primitive.NilObjectID, errors.New("user email, password hash, and role are required")
	}

	release, record := r.s.write(ctx)
	defer release()

	key := domain.NormalizeEmail(user.Email)
	for _, u := range r.s.users {
		if u.EmailKey == key {
			return primitive.NilObjectID, repository.ErrDuplicateKey
		}
	}

	user.ID = primitive.NewObjectID()
	user.EmailKey = key
	now := r.s.clock()
	user.CreatedAt = now
	user.UpdatedAt = now

	id := user.ID
	r.s.users[id] = user.Clone()
	record(func() { delete(r.s.users, id) })
	return id, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	defer r.s.read(ctx)()

	key := domain.NormalizeEmail(email)
	for _, u := range r.s.users {
		if u.EmailKey == key {
			return u.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	defer r.s.read(ctx)()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u.Clone(), nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	release, record := r.s.write(ctx)
	defer release()

	cur, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	prev := cur.Clone()

	next := user.Clone()
	next.Role = prev.Role
	next.Email = prev.Email
	next.EmailKey = prev.EmailKey
	next.PasswordHash = prev.PasswordHash
	next.CreatedAt = prev.CreatedAt
	next.ActiveTrainerID = prev.ActiveTrainerID
	next.TrainerNotes = prev.TrainerNotes
	next.UpdatedAt = r.s.clock()

	r.s.users[user.ID] = next
	record(func() { r.s.users[prev.ID] = prev })
	return nil
}

func (r *UserRepository) SetActiveTrainer(ctx context.Context, clientID, trainerID primitive.ObjectID) error {
	return r.mutateClient(ctx, clientID, func(u *domain.User) {
		id := trainerID
		u.ActiveTrainerID = &id
	})
}

func (r *UserRepository) SetTrainerNotes(ctx context.Context, clientID primitive.ObjectID, notes string) error {
	return r.mutateClient(ctx, clientID, func(u *domain.User) {
		u.TrainerNotes = notes
	})
}

func (r *UserRepository) mutateClient(ctx context.Context, clientID primitive.ObjectID, mutate func(*domain.User)) error {
	release, record := r.s.write(ctx)
	defer release()

	cur, ok := r.s.users[clientID]
	if !ok || cur.Role != domain.RoleClient {
		return repository.ErrNotFound
	}
	prev := cur.Clone()
	next := cur.Clone()
	mutate(next)
	next.UpdatedAt = r.s.clock()

	r.s.users[clientID] = next
	record(func() { r.s.users[clientID] = prev })
	return nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	return r.list(ctx, func(u *domain.User) bool { return u.Role == role })
}

func (r *UserRepository) ListClientsByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	return r.list(ctx, func(u *domain.User) bool {
		return u.Role == domain.RoleClient && u.HasActiveTrainer(trainerID)
	})
}

// list returns matches ordered by creation time.
func (r *UserRepository) list(ctx context.Context, match func(*domain.User) bool) ([]domain.User, error) {
	defer r.s.read(ctx)()

	users := make([]domain.User, 0)
	for _, u := range r.s.users {
		if match(u) {
			users = append(users, *u.Clone())
		}
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID.Hex() < users[j].ID.Hex()
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}
