package events

import (
	"context"

	"github.com/fitmatch/coaching-api/internal/domain"

	"github.com/segmentio/kafka-go"
)

// Kafka writes envelopes to one topic keyed by event type.
type Kafka struct {
	writer *kafka.Writer
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (k *Kafka) Publish(ctx context.Context, event domain.Event) error {
	body, err := encode(event)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Type()),
		Value: body,
	})
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
