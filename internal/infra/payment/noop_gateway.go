package payment

import (
	"context"

	"media-subscription-platform/internal/domain/ports/adapter"
)

var _ adapter.StatusGateway = (*NoopGateway)(nil)

// NoopGateway answers Unknown for everything. Useful in development when no
// provider credentials are configured: pending records are simply left alone.
type NoopGateway struct{}

func NewNoopGateway() *NoopGateway { return &NoopGateway{} }

func (NoopGateway) Name() string { return "noop" }

func (NoopGateway) QueryStatus(ctx context.Context, paymentRef string) (adapter.Verdict, error) {
	return adapter.Verdict{State: adapter.SettlementUnknown}, nil
}
