package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fitmatch/coaching-api/internal/domain"
	"github.com/fitmatch/coaching-api/internal/lock"
	"github.com/fitmatch/coaching-api/internal/repository"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanService creates and supersedes per-client plans.
type PlanService interface {
	AssignPlan(ctx context.Context, clientID, trainerID primitive.ObjectID, draft domain.PlanDraft) (*domain.Plan, error)
	// ActivePlanFor returns nil and no error when the client has no active plan.
	ActivePlanFor(ctx context.Context, clientID primitive.ObjectID) (*domain.Plan, error)
	CompletedPlansFor(ctx context.Context, clientID primitive.ObjectID) ([]domain.Plan, error)
	// PlansForClient is the trainer's view of a roster member's plans, oldest first.
	PlansForClient(ctx context.Context, trainerID, clientID primitive.ObjectID) ([]domain.Plan, error)
}

type planService struct {
	repos  Repositories
	locker lock.Locker
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

func NewPlanService(repos Repositories, locker lock.Locker, events EventPublisher, logger *slog.Logger) PlanService {
	return &planService{
		repos:  repos,
		locker: locker,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// AssignPlan completes every active plan of the client and inserts the new one
// as active, in one transaction. Only the client's active trainer may assign.
func (s *planService) AssignPlan(ctx context.Context, clientID, trainerID primitive.ObjectID, draft domain.PlanDraft) (*domain.Plan, error) {
	if err := validateInput(draft); err != nil {
		return nil, err
	}
	for _, w := range draft.Workouts {
		if lo.ContainsBy(w.Exercises, func(e string) bool { return strings.TrimSpace(e) == "" }) {
			return nil, fmt.Errorf("%w: exercise lines must not be blank", domain.ErrInvalidInput)
		}
	}
	if draft.Diet != nil && lo.ContainsBy(draft.Diet.Meals, func(m domain.MealDraft) bool { return strings.TrimSpace(m.Name) == "" }) {
		return nil, fmt.Errorf("%w: meal names must not be blank", domain.ErrInvalidInput)
	}

	unlock, err := s.locker.Lock(ctx, lock.Key("client", clientID.Hex()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	plan := buildPlan(clientID, trainerID, draft, s.now().UTC())
	var superseded []primitive.ObjectID
	err = s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		client, err := loadUser(ctx, s.repos.Users, clientID, domain.RoleClient)
		if err != nil {
			return err
		}
		if !client.HasActiveTrainer(trainerID) {
			return fmt.Errorf("plan: %w", domain.ErrForbidden)
		}

		if superseded, err = s.repos.Plans.CompleteActiveForClient(ctx, clientID); err != nil {
			return err
		}
		if _, err := s.repos.Plans.Create(ctx, plan); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return fmt.Errorf("plan: %w", repository.ErrConflict)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("plan assigned", "plan_id", plan.ID.Hex(), "client_id", clientID.Hex(), "superseded", len(superseded))
	publish(s.logger, s.events, domain.NewPlanAssigned(plan, superseded))
	return plan, nil
}

// buildPlan fills draft defaults and assigns fresh ids to the value objects.
func buildPlan(clientID, trainerID primitive.ObjectID, draft domain.PlanDraft, now time.Time) *domain.Plan {
	weeks := draft.DurationWeeks
	if weeks <= 0 {
		weeks = domain.DefaultPlanWeeks
	}

	plan := &domain.Plan{
		ClientID:  clientID,
		TrainerID: trainerID,
		Title:     orDefault(draft.Title, domain.DefaultPlanTitle),
		Status:    domain.PlanActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, 7*weeks),
		Workouts: lo.Map(draft.Workouts, func(w domain.WorkoutDraft, _ int) domain.Workout {
			return domain.Workout{
				ID:        primitive.NewObjectID(),
				DayOfWeek: orDefault(w.DayOfWeek, domain.DefaultWorkoutDay),
				Title:     orDefault(w.Title, domain.DefaultWorkoutTitle),
				Exercises: append([]string{}, w.Exercises...),
				MediaLink: strings.TrimSpace(w.MediaLink),
			}
		}),
	}
	if draft.Diet != nil {
		plan.Diet = &domain.Diet{
			ID:    primitive.NewObjectID(),
			Title: orDefault(draft.Diet.Title, domain.DefaultDietTitle),
			Focus: orDefault(draft.Diet.Focus, domain.DefaultDietFocus),
			Meals: lo.Map(draft.Diet.Meals, func(m domain.MealDraft, _ int) domain.Meal {
				return domain.Meal{
					ID:       primitive.NewObjectID(),
					Name:     strings.TrimSpace(m.Name),
					Calories: m.Calories,
					PhotoURL: m.PhotoURL,
				}
			}),
		}
	}
	return plan
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func (s *planService) ActivePlanFor(ctx context.Context, clientID primitive.ObjectID) (*domain.Plan, error) {
	if _, err := loadUser(ctx, s.repos.Users, clientID, domain.RoleClient); err != nil {
		return nil, err
	}
	plan, err := s.repos.Plans.GetActiveForClient(ctx, clientID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return plan, err
}

func (s *planService) CompletedPlansFor(ctx context.Context, clientID primitive.ObjectID) ([]domain.Plan, error) {
	if _, err := loadUser(ctx, s.repos.Users, clientID, domain.RoleClient); err != nil {
		return nil, err
	}
	return s.repos.Plans.ListByClient(ctx, clientID, domain.PlanCompleted)
}

func (s *planService) PlansForClient(ctx context.Context, trainerID, clientID primitive.ObjectID) ([]domain.Plan, error) {
	var plans []domain.Plan
	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		client, err := loadUser(ctx, s.repos.Users, clientID, domain.RoleClient)
		if err != nil {
			return err
		}
		if !client.HasActiveTrainer(trainerID) {
			return fmt.Errorf("plans: %w", domain.ErrForbidden)
		}
		plans, err = s.repos.Plans.ListByClient(ctx, clientID, "")
		return err
	})
	return plans, err
}
