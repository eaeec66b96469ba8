package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fitmatch/coaching-api/internal/domain"

	"github.com/google/uuid"
)

// Publisher forwards events to an external broker.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
	Close() error
}

// Envelope is the wire format shared by every broker.
type Envelope struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	PublishedAt time.Time    `json:"publishedAt"`
	Payload     domain.Event `json:"payload"`
}

func encode(event domain.Event) ([]byte, error) {
	return json.Marshal(Envelope{
		ID:          uuid.NewString(),
		Type:        event.Type(),
		PublishedAt: event.PublishedAt(),
		Payload:     event,
	})
}

// Forward subscribes p to every event on the bus.
func Forward(bus *Bus, p Publisher) {
	bus.Register(AllEvents, p.Publish)
}
