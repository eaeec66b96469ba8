package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/fitmatch/coaching-api/internal/domain"
	"github.com/fitmatch/coaching-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestRepository implements repository.RequestRepository.
type RequestRepository struct {
	s *Store
}

var _ repository.RequestRepository = (*RequestRepository)(nil)

func (r *RequestRepository) Create(ctx context.Context, req *domain.ConnectionRequest) (primitive.ObjectID, error) {
	if req.ClientID.IsZero() || req.TrainerID.IsZero() {
		return primitive.NilObjectID, errors.New("request requires clientId and trainerId")
	}

	release, record := r.s.write(ctx)
	defer release()

	if req.Status == "" {
		req.Status = domain.RequestPending
	}
	if req.Status == domain.RequestPending {
		for _, existing := range r.s.requests {
			if existing.Status == domain.RequestPending &&
				existing.ClientID == req.ClientID && existing.TrainerID == req.TrainerID {
				return primitive.NilObjectID, repository.ErrDuplicateKey
			}
		}
	}

	req.ID = primitive.NewObjectID()
	now := r.s.clock()
	req.CreatedAt = now
	req.UpdatedAt = now

	id := req.ID
	stored := *req
	r.s.requests[id] = &stored
	record(func() { delete(r.s.requests, id) })
	return id, nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ConnectionRequest, error) {
	defer r.s.read(ctx)()

	req, ok := r.s.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *req
	return &c, nil
}

func (r *RequestRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to domain.RequestStatus) error {
	release, record := r.s.write(ctx)
	defer release()

	req, ok := r.s.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	if req.Status != from {
		return repository.ErrConflict
	}
	prev := *req
	next := *req
	next.Status = to
	next.UpdatedAt = r.s.clock()

	r.s.requests[id] = &next
	record(func() { r.s.requests[id] = &prev })
	return nil
}

func (r *RequestRepository) ListByPair(ctx context.Context, clientID, trainerID primitive.ObjectID) ([]domain.ConnectionRequest, error) {
	return r.list(ctx, func(req *domain.ConnectionRequest) bool {
		return req.ClientID == clientID && req.TrainerID == trainerID
	})
}

func (r *RequestRepository) ListByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.ConnectionRequest, error) {
	return r.list(ctx, func(req *domain.ConnectionRequest) bool { return req.ClientID == clientID })
}

func (r *RequestRepository) ListByTrainer(ctx context.Context, trainerID primitive.ObjectID, status domain.RequestStatus) ([]domain.ConnectionRequest, error) {
	return r.list(ctx, func(req *domain.ConnectionRequest) bool {
		return req.TrainerID == trainerID && (status == "" || req.Status == status)
	})
}

// list returns matches oldest first. ObjectIDs grow with creation, so they
// break ties between requests created in the same millisecond.
func (r *RequestRepository) list(ctx context.Context, match func(*domain.ConnectionRequest) bool) ([]domain.ConnectionRequest, error) {
	defer r.s.read(ctx)()

	out := make([]domain.ConnectionRequest, 0)
	for _, req := range r.s.requests {
		if match(req) {
			out = append(out, *req)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() < out[j].ID.Hex()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
