// Package events dispatches domain events to subscribers after the mutation
// that produced them has committed.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fitmatch/coaching-api/internal/domain"
)

// AllEvents subscribes a handler to every event type.
const AllEvents = "*"

type Handler func(ctx context.Context, event domain.Event) error

// Bus runs handlers asynchronously. A failing handler is logged and never
// affects the publisher or other handlers.
type Bus struct {
	logger   *slog.Logger
	timeout  time.Duration
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger:   logger,
		timeout:  30 * time.Second,
		handlers: make(map[string][]Handler),
	}
}

func (b *Bus) Register(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

func (b *Bus) PublishEvents(events ...domain.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, event := range events {
		handlers := append(append([]Handler(nil), b.handlers[event.Type()]...), b.handlers[AllEvents]...)
		for _, handler := range handlers {
			b.wg.Add(1)
			go func(event domain.Event, handler Handler) {
				defer b.wg.Done()
				ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
				defer cancel()
				if err := handler(ctx, event); err != nil {
					b.logger.Error("failed to handle event", "type", event.Type(), "error", err)
				}
			}(event, handler)
		}
	}
	return nil
}

// Close waits for in-flight handlers.
func (b *Bus) Close() {
	b.wg.Wait()
}
