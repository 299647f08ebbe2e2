package notify

import (
	"context"

	"github.com/rs/zerolog"

	"media-subscription-platform/internal/domain/model"
	"media-subscription-platform/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier logs instead of delivering. Used in development.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	l := logger.With().Str("component", "NoopNotifier").Logger()
	return &NoopNotifier{log: &l}
}

func (n *NoopNotifier) Name() string { return "noop" }

func (n *NoopNotifier) Notify(ctx context.Context, target model.NotifyTarget, msg model.Message) error {
	n.log.Info().Interface("target", target).Str("title", msg.Title).Msg("notification dropped")
	return nil
}
