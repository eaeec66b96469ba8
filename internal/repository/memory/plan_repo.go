package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/fitmatch/coaching-api/internal/domain"
	"github.com/fitmatch/coaching-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanRepository implements repository.PlanRepository.
type PlanRepository struct {
	s *Store
}

var _ repository.PlanRepository = (*PlanRepository)(nil)

func (r *PlanRepository) Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	if plan.ClientID.IsZero() || plan.TrainerID.IsZero() || plan.Title == "" {
		return primitive.NilObjectID, errors.New("plan requires clientId, trainerId, and title")
	}

	release, record := r.s.write(ctx)
	defer release()

	if plan.Status == domain.PlanActive {
		for _, p := range r.s.plans {
			if p.ClientID == plan.ClientID && p.Status == domain.PlanActive {
				return primitive.NilObjectID, repository.ErrDuplicateKey
			}
		}
	}

	plan.ID = primitive.NewObjectID()
	now := r.s.clock()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	id := plan.ID
	r.s.plans[id] = plan.Clone()
	record(func() { delete(r.s.plans, id) })
	return id, nil
}

func (r *PlanRepository) GetActiveForClient(ctx context.Context, clientID primitive.ObjectID) (*domain.Plan, error) {
	defer r.s.read(ctx)()

	for _, p := range r.s.plans {
		if p.ClientID == clientID && p.Status == domain.PlanActive {
			return p.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *PlanRepository) CompleteActiveForClient(ctx context.Context, clientID primitive.ObjectID) ([]primitive.ObjectID, error) {
	release, record := r.s.write(ctx)
	defer release()

	changed := make([]primitive.ObjectID, 0, 1)
	now := r.s.clock()
	for id, p := range r.s.plans {
		if p.ClientID != clientID || p.Status != domain.PlanActive {
			continue
		}
		prev := p
		next := p.Clone()
		next.Status = domain.PlanCompleted
		next.UpdatedAt = now
		r.s.plans[id] = next

		planID := id
		record(func() { r.s.plans[planID] = prev })
		changed = append(changed, id)
	}
	return changed, nil
}

func (r *PlanRepository) ListByClient(ctx context.Context, clientID primitive.ObjectID, status domain.PlanStatus) ([]domain.Plan, error) {
	defer r.s.read(ctx)()

	plans := make([]domain.Plan, 0)
	for _, p := range r.s.plans {
		if p.ClientID == clientID && (status == "" || p.Status == status) {
			plans = append(plans, *p.Clone())
		}
	}
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].CreatedAt.Equal(plans[j].CreatedAt) {
			return plans[i].ID.Hex() < plans[j].ID.Hex()
		}
		return plans[i].CreatedAt.Before(plans[j].CreatedAt)
	})
	return plans, nil
}
