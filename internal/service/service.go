package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fitmatch/coaching-api/internal/domain"
	"github.com/fitmatch/coaching-api/internal/repository"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventPublisher receives events after the mutation that produced them committed.
type EventPublisher interface {
	PublishEvents(events ...domain.Event) error
}

// Repositories bundles the stores every service reads and writes through.
type Repositories struct {
	Users    repository.UserRepository
	Requests repository.RequestRepository
	Plans    repository.PlanRepository
	Messages repository.MessageRepository
	Tx       repository.Transactor
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput runs struct tags and reports failures as ErrInvalidInput.
func validateInput(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on %q", domain.ErrInvalidInput, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// notFound maps the repository sentinel onto the domain taxonomy.
func notFound(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return err
}

func publish(logger *slog.Logger, pub EventPublisher, events ...domain.Event) {
	if pub == nil || len(events) == 0 {
		return
	}
	if err := pub.PublishEvents(events...); err != nil {
		logger.Error("failed to publish events", "error", err)
	}
}

// loadUser fetches id and checks its role. An empty role accepts either.
func loadUser(ctx context.Context, users repository.UserRepository, id primitive.ObjectID, role domain.Role) (*domain.User, error) {
	what := "user"
	switch role {
	case domain.RoleClient:
		what = "client"
	case domain.RoleTrainer:
		what = "trainer"
	}
	u, err := users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, what)
	}
	if role != "" && u.Role != role {
		return nil, fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return u, nil
}
