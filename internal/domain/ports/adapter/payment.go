package adapter

import "context"

// SettlementState is the gateway's answer to "did this payment complete".
// Unknown covers unreachable gateways, timeouts and unparsable responses;
// it must never be collapsed into Failed, because Failed is destructive
// while Unknown is retried at the next sweep.
type SettlementState string

const (
	SettlementCompleted SettlementState = "completed"
	SettlementFailed    SettlementState = "failed"
	SettlementUnknown   SettlementState = "unknown"
)

// Verdict is a provider-agnostic settlement result. SettledAmount is in the
// gateway's minor-unit convention and is only meaningful for Completed.
type Verdict struct {
	State         SettlementState
	SettledAmount int64
	ProviderCode  string // raw provider status code, for logs
}

// StatusGateway is the hex port for payment providers. A single call is one
// blocking network round-trip with a bounded timeout and no retries; retrying
// is the caller's responsibility, bounded by the reconciliation cadence.
type StatusGateway interface {
	Name() string

	// QueryStatus resolves a stored payment reference into a settlement
	// verdict. Transport or parse failures yield a Verdict with State
	// Unknown alongside the error; the verdict is always usable.
	QueryStatus(ctx context.Context, paymentRef string) (Verdict, error)
}
