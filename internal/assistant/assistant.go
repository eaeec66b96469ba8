// Package assistant wraps the optional text-completion provider used to
// draft trainer replies.
package assistant

import (
	"context"
	"errors"

	"github.com/fitmatch/coaching-api/internal/domain"
)

const (
	// OfflineReply is used when no provider is configured.
	OfflineReply = "Hej! I am currently offline, but I will get back to you regarding your training shortly."
	// EmptyReply is used when the provider answers with no text.
	EmptyReply = "Keep pushing! I'll check your form soon."
)

var ErrNotConfigured = errors.New("assistant: provider not configured")

// Replier generates a reply in the voice of assistantName.
type Replier interface {
	GenerateReply(ctx context.Context, history []domain.Message, assistantName, lastUserText string) (string, error)
}

// Offline is the Replier used when no provider is configured.
type Offline struct{}

func (Offline) GenerateReply(context.Context, []domain.Message, string, string) (string, error) {
	return "", ErrNotConfigured
}

// Reply asks r for a reply and substitutes the static fallback on any failure.
// The returned error is informational; the string is always usable.
func Reply(ctx context.Context, r Replier, history []domain.Message, name, last string) (string, error) {
	text, err := r.GenerateReply(ctx, history, name, last)
	switch {
	case errors.Is(err, ErrNotConfigured):
		return OfflineReply, nil
	case err != nil:
		return OfflineReply, err
	case text == "":
		return EmptyReply, nil
	}
	return text, nil
}
