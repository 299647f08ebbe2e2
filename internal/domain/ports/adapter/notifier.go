package adapter

import (
	"context"

	"media-subscription-platform/internal/domain/model"
)

// Notifier is the hex port for push delivery. Callers log and swallow
// failures; a broken push channel must never block the triggering operation.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, target model.NotifyTarget, msg model.Message) error
}
