package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fitmatch/coaching-api/internal/domain"
	"github.com/fitmatch/coaching-api/internal/lock"
	"github.com/fitmatch/coaching-api/internal/repository"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RelationshipService governs the connection-request lifecycle and is the
// only writer of a client's active trainer.
type RelationshipService interface {
	RequestConnection(ctx context.Context, clientID, trainerID primitive.ObjectID) (*domain.ConnectionRequest, error)
	Accept(ctx context.Context, requestID, trainerID primitive.ObjectID) (*domain.ConnectionRequest, error)
	Reject(ctx context.Context, requestID, trainerID primitive.ObjectID) (*domain.ConnectionRequest, error)
	StatusFor(ctx context.Context, clientID, trainerID primitive.ObjectID) (domain.ConnectionStatus, error)
	PendingRequestsFor(ctx context.Context, trainerID primitive.ObjectID) ([]domain.ConnectionRequest, error)
	RequestsByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.ConnectionRequest, error)
}

type relationshipService struct {
	repos  Repositories
	locker lock.Locker
	events EventPublisher
	logger *slog.Logger
}

func NewRelationshipService(repos Repositories, locker lock.Locker, events EventPublisher, logger *slog.Logger) RelationshipService {
	return &relationshipService{
		repos:  repos,
		locker: locker,
		events: events,
		logger: logger,
	}
}

// RequestConnection creates a PENDING request from the client to the trainer.
// A client may have pending requests to several trainers at once.
func (s *relationshipService) RequestConnection(ctx context.Context, clientID, trainerID primitive.ObjectID) (*domain.ConnectionRequest, error) {
	if _, err := loadUser(ctx, s.repos.Users, trainerID, domain.RoleTrainer); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lock.Key("client", clientID.Hex()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	req := &domain.ConnectionRequest{ClientID: clientID, TrainerID: trainerID, Status: domain.RequestPending}
	err = s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		client, err := loadUser(ctx, s.repos.Users, clientID, domain.RoleClient)
		if err != nil {
			return err
		}

		existing, err := s.repos.Requests.ListByPair(ctx, clientID, trainerID)
		if err != nil {
			return err
		}
		if lo.ContainsBy(existing, func(r domain.ConnectionRequest) bool { return r.Status == domain.RequestPending }) {
			return domain.ErrDuplicateRequest
		}
		if client.HasActiveTrainer(trainerID) {
			return domain.ErrAlreadyConnected
		}

		if _, err := s.repos.Requests.Create(ctx, req); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return domain.ErrDuplicateRequest
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("connection requested", "request_id", req.ID.Hex(), "client_id", clientID.Hex(), "trainer_id", trainerID.Hex())
	publish(s.logger, s.events, domain.NewRequestEvent(*req))
	return req, nil
}

// Accept activates the request and points the client at the trainer. Other
// pending requests of the client stay pending.
func (s *relationshipService) Accept(ctx context.Context, requestID, trainerID primitive.ObjectID) (*domain.ConnectionRequest, error) {
	return s.transition(ctx, requestID, trainerID, domain.RequestActive)
}

// Reject closes the request. The client's active trainer is left as is.
func (s *relationshipService) Reject(ctx context.Context, requestID, trainerID primitive.ObjectID) (*domain.ConnectionRequest, error) {
	return s.transition(ctx, requestID, trainerID, domain.RequestRejected)
}

// transition checks NotFound, then Forbidden, then InvalidTransition, and applies
// the status change together with its effect on the client record.
func (s *relationshipService) transition(ctx context.Context, requestID, trainerID primitive.ObjectID, to domain.RequestStatus) (*domain.ConnectionRequest, error) {
	req, err := s.repos.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, notFound(err, "request")
	}
	if req.TrainerID != trainerID {
		return nil, fmt.Errorf("request: %w", domain.ErrForbidden)
	}

	unlock, err := s.locker.Lock(ctx, lock.Key("client", req.ClientID.Hex()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repos.Requests.GetByID(ctx, requestID)
		if err != nil {
			return notFound(err, "request")
		}
		if err := current.Transition(to); err != nil {
			return err
		}
		if err := s.repos.Requests.UpdateStatus(ctx, requestID, domain.RequestPending, to); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return domain.ErrInvalidTransition
			}
			return err
		}
		if to == domain.RequestActive {
			if err := s.repos.Users.SetActiveTrainer(ctx, current.ClientID, current.TrainerID); err != nil {
				return notFound(err, "client")
			}
		}
		req, err = s.repos.Requests.GetByID(ctx, requestID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("connection request updated", "request_id", requestID.Hex(), "status", req.Status)
	publish(s.logger, s.events, domain.NewRequestEvent(*req))
	return req, nil
}

// StatusFor: ACTIVE when the client's active trainer is trainerID, otherwise the
// most recent PENDING, otherwise the most recent REJECTED, otherwise NONE.
func (s *relationshipService) StatusFor(ctx context.Context, clientID, trainerID primitive.ObjectID) (domain.ConnectionStatus, error) {
	status := domain.ConnectionNone
	err := s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		client, err := loadUser(ctx, s.repos.Users, clientID, domain.RoleClient)
		if err != nil {
			return err
		}
		requests, err := s.repos.Requests.ListByPair(ctx, clientID, trainerID)
		if err != nil {
			return err
		}
		status = connectionStatus(client, trainerID, requests)
		return nil
	})
	return status, err
}

// connectionStatus derives the status from a client and the pair's requests.
// Only presence matters: a pair holds at most one pending request.
func connectionStatus(client *domain.User, trainerID primitive.ObjectID, requests []domain.ConnectionRequest) domain.ConnectionStatus {
	if client.HasActiveTrainer(trainerID) {
		return domain.ConnectionActive
	}
	if lo.ContainsBy(requests, func(r domain.ConnectionRequest) bool { return r.Status == domain.RequestPending }) {
		return domain.ConnectionPending
	}
	if lo.ContainsBy(requests, func(r domain.ConnectionRequest) bool { return r.Status == domain.RequestRejected }) {
		return domain.ConnectionRejected
	}
	return domain.ConnectionNone
}

func (s *relationshipService) PendingRequestsFor(ctx context.Context, trainerID primitive.ObjectID) ([]domain.ConnectionRequest, error) {
	if _, err := loadUser(ctx, s.repos.Users, trainerID, domain.RoleTrainer); err != nil {
		return nil, err
	}
	return s.repos.Requests.ListByTrainer(ctx, trainerID, domain.RequestPending)
}

func (s *relationshipService) RequestsByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.ConnectionRequest, error) {
	if _, err := loadUser(ctx, s.repos.Users, clientID, domain.RoleClient); err != nil {
		return nil, err
	}
	return s.repos.Requests.ListByClient(ctx, clientID)
}
