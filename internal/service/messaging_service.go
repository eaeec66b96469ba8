package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fitmatch/coaching-api/internal/assistant"
	"github.com/fitmatch/coaching-api/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessagingService appends to and projects the global message log. Pairing
// between participants is checked by the caller, not here.
type MessagingService interface {
	Send(ctx context.Context, senderID, receiverID primitive.ObjectID, body string) (*domain.Message, error)
	// Conversation returns the pair's messages by timestamp, ties in insertion order.
	Conversation(ctx context.Context, userA, userB primitive.ObjectID) ([]domain.Message, error)
	InboxFor(ctx context.Context, userID primitive.ObjectID) ([]domain.Message, error)
}

type messagingService struct {
	repos  Repositories
	events EventPublisher
	logger *slog.Logger
}

func NewMessagingService(repos Repositories, events EventPublisher, logger *slog.Logger) MessagingService {
	return &messagingService{repos: repos, events: events, logger: logger}
}

func (s *messagingService) Send(ctx context.Context, senderID, receiverID primitive.ObjectID, body string) (*domain.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, domain.ErrEmptyBody
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: cannot message yourself", domain.ErrInvalidInput)
	}
	if _, err := loadUser(ctx, s.repos.Users, senderID, ""); err != nil {
		return nil, err
	}
	if _, err := loadUser(ctx, s.repos.Users, receiverID, ""); err != nil {
		return nil, err
	}

	msg := &domain.Message{SenderID: senderID, ReceiverID: receiverID, Body: body}
	if err := s.repos.Messages.Append(ctx, msg); err != nil {
		return nil, err
	}

	publish(s.logger, s.events, domain.NewMessageSent(*msg))
	return msg, nil
}

func (s *messagingService) Conversation(ctx context.Context, userA, userB primitive.ObjectID) ([]domain.Message, error) {
	return s.repos.Messages.Conversation(ctx, userA, userB)
}

func (s *messagingService) InboxFor(ctx context.Context, userID primitive.ObjectID) ([]domain.Message, error) {
	return s.repos.Messages.ListForUser(ctx, userID)
}

// AutoReplier answers a client's message to their active trainer with a
// generated reply sent as the trainer. It runs after the client's message is stored.
type AutoReplier struct {
	repos     Repositories
	messaging MessagingService
	replier   assistant.Replier
	logger    *slog.Logger
}

func NewAutoReplier(repos Repositories, messaging MessagingService, replier assistant.Replier, logger *slog.Logger) *AutoReplier {
	return &AutoReplier{repos: repos, messaging: messaging, replier: replier, logger: logger}
}

// Handle is registered on the event bus for message.sent.
func (a *AutoReplier) Handle(ctx context.Context, event domain.Event) error {
	sent, ok := event.(domain.MessageSent)
	if !ok {
		return nil
	}
	msg := sent.Message

	sender, err := a.repos.Users.GetByID(ctx, msg.SenderID)
	if err != nil {
		return err
	}
	if !sender.IsClient() || !sender.HasActiveTrainer(msg.ReceiverID) {
		return nil
	}
	trainer, err := a.repos.Users.GetByID(ctx, msg.ReceiverID)
	if err != nil {
		return err
	}

	history, err := a.messaging.Conversation(ctx, msg.SenderID, msg.ReceiverID)
	if err != nil {
		return err
	}

	text, err := assistant.Reply(ctx, a.replier, history, trainer.Name, msg.Body)
	if err != nil {
		a.logger.Warn("reply provider failed, using fallback", "trainer_id", trainer.ID.Hex(), "error", err)
	}

	_, err = a.messaging.Send(ctx, trainer.ID, sender.ID, text)
	return err
}
