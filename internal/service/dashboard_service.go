package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitmatch/coaching-api/internal/domain"
	"github.com/fitmatch/coaching-api/internal/repository"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DashboardService assembles the per-role views. Every view is read in one
// transaction so it reflects a single committed state.
type DashboardService interface {
	ClientDashboard(ctx context.Context, clientID primitive.ObjectID) (*ClientDashboard, error)
	TrainerDashboard(ctx context.Context, trainerID primitive.ObjectID) (*TrainerDashboard, error)
	ClientDetail(ctx context.Context, trainerID, clientID primitive.ObjectID) (*ClientDetail, error)
	// Profile returns subjectID as viewerID may see it.
	Profile(ctx context.Context, viewerID, subjectID primitive.ObjectID) (any, error)
	// EnsurePaired fails with ErrForbidden unless one user is the other's active trainer.
	EnsurePaired(ctx context.Context, userA, userB primitive.ObjectID) error
}

type dashboardService struct {
	repos Repositories
}

func NewDashboardService(repos Repositories) DashboardService {
	return &dashboardService{repos: repos}
}

func (s *dashboardService) ClientDashboard(ctx context.Context, clientID primitive.ObjectID) (*ClientDashboard, error) {
	view := &ClientDashboard{}
	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		me, err := loadUser(ctx, s.repos.Users, clientID, domain.RoleClient)
		if err != nil {
			return err
		}
		view.Me = me

		if view.ActivePlan, err = s.activePlan(ctx, clientID); err != nil {
			return err
		}
		if view.PlanHistory, err = s.repos.Plans.ListByClient(ctx, clientID, domain.PlanCompleted); err != nil {
			return err
		}

		if me.ActiveTrainerID != nil {
			trainer, err := s.repos.Users.GetByID(ctx, *me.ActiveTrainerID)
			if err != nil {
				return notFound(err, "trainer")
			}
			p := NewPublicProfile(trainer)
			view.ActiveTrainer = &p
			if view.Conversation, err = s.repos.Messages.Conversation(ctx, clientID, trainer.ID); err != nil {
				return err
			}
		}

		trainers, err := s.repos.Users.ListByRole(ctx, domain.RoleTrainer)
		if err != nil {
			return err
		}
		requests, err := s.repos.Requests.ListByClient(ctx, clientID)
		if err != nil {
			return err
		}
		byTrainer := lo.GroupBy(requests, func(r domain.ConnectionRequest) primitive.ObjectID { return r.TrainerID })
		view.Trainers = lo.Map(trainers, func(t domain.User, _ int) TrainerCard {
			return TrainerCard{
				Trainer: NewPublicProfile(&t),
				Status:  connectionStatus(me, t.ID, byTrainer[t.ID]),
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *dashboardService) TrainerDashboard(ctx context.Context, trainerID primitive.ObjectID) (*TrainerDashboard, error) {
	view := &TrainerDashboard{}
	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		me, err := loadUser(ctx, s.repos.Users, trainerID, domain.RoleTrainer)
		if err != nil {
			return err
		}
		view.Me = me

		pending, err := s.repos.Requests.ListByTrainer(ctx, trainerID, domain.RequestPending)
		if err != nil {
			return err
		}
		view.PendingRequests = make([]PendingRequest, 0, len(pending))
		for _, r := range pending {
			client, err := s.repos.Users.GetByID(ctx, r.ClientID)
			if err != nil {
				return notFound(err, "client")
			}
			view.PendingRequests = append(view.PendingRequests, PendingRequest{Request: r, Client: NewPublicProfile(client)})
		}

		roster, err := s.repos.Users.ListClientsByTrainer(ctx, trainerID)
		if err != nil {
			return err
		}
		view.Roster = lo.Map(roster, func(c domain.User, _ int) ClientProfile { return NewClientProfile(&c) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *dashboardService) ClientDetail(ctx context.Context, trainerID, clientID primitive.ObjectID) (*ClientDetail, error) {
	view := &ClientDetail{}
	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		client, err := loadUser(ctx, s.repos.Users, clientID, domain.RoleClient)
		if err != nil {
			return err
		}
		if !client.HasActiveTrainer(trainerID) {
			return fmt.Errorf("client: %w", domain.ErrForbidden)
		}
		view.Client = NewClientProfile(client)

		if view.ActivePlan, err = s.activePlan(ctx, clientID); err != nil {
			return err
		}
		if view.PlanHistory, err = s.repos.Plans.ListByClient(ctx, clientID, domain.PlanCompleted); err != nil {
			return err
		}
		view.Conversation, err = s.repos.Messages.Conversation(ctx, clientID, trainerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *dashboardService) Profile(ctx context.Context, viewerID, subjectID primitive.ObjectID) (any, error) {
	subject, err := loadUser(ctx, s.repos.Users, subjectID, "")
	if err != nil {
		return nil, err
	}
	return ProfileFor(viewerID, subject), nil
}

func (s *dashboardService) EnsurePaired(ctx context.Context, userA, userB primitive.ObjectID) error {
	a, err := loadUser(ctx, s.repos.Users, userA, "")
	if err != nil {
		return err
	}
	b, err := loadUser(ctx, s.repos.Users, userB, "")
	if err != nil {
		return err
	}
	if (a.IsClient() && a.HasActiveTrainer(b.ID)) || (b.IsClient() && b.HasActiveTrainer(a.ID)) {
		return nil
	}
	return fmt.Errorf("conversation: %w", domain.ErrForbidden)
}

func (s *dashboardService) activePlan(ctx context.Context, clientID primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.repos.Plans.GetActiveForClient(ctx, clientID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return plan, err
}
