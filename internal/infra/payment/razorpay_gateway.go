package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"media-subscription-platform/internal/domain/ports/adapter"
	"media-subscription-platform/internal/infra/metrics"
)

var _ adapter.StatusGateway = (*RazorpayGateway)(nil)

// RazorpayGateway resolves a stored order id by listing its payments. The
// order settles when any payment on it is captured; it fails when every
// attempt failed.
type RazorpayGateway struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

func NewRazorpayGateway(keyID, keySecret, baseURL string, timeout time.Duration) *RazorpayGateway {
	return &RazorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

type razorpayPaymentList struct {
	Count int `json:"count"`
	Items []struct {
		ID        string `json:"id"`
		Amount    int64  `json:"amount"` // paise
		Status    string `json:"status"` // created|authorized|captured|refunded|failed
		ErrorCode string `json:"error_code"`
	} `json:"items"`
}

func (g *RazorpayGateway) QueryStatus(ctx context.Context, paymentRef string) (adapter.Verdict, error) {
	started := time.Now()
	defer func() {
		metrics.ObserveGatewayQueryDuration(g.Name(), time.Since(started).Seconds())
	}()

	url := fmt.Sprintf("%s/v1/orders/%s/payments", g.baseURL, paymentRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return unknownVerdict(), fmt.Errorf("razorpay: build request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return unknownVerdict(), fmt.Errorf("razorpay: status call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return unknownVerdict(), fmt.Errorf("razorpay: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return unknownVerdict(), fmt.Errorf("razorpay: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed razorpayPaymentList
	if err := json.Unmarshal(body, &parsed); err != nil {
		return unknownVerdict(), fmt.Errorf("razorpay: unmarshal response: %w", err)
	}

	failures := 0
	for _, p := range parsed.Items {
		switch p.Status {
		case "captured":
			return adapter.Verdict{
				State:         adapter.SettlementCompleted,
				SettledAmount: p.Amount,
				ProviderCode:  p.Status,
			}, nil
		case "failed":
			failures++
		}
	}
	if parsed.Count > 0 && failures == parsed.Count {
		return adapter.Verdict{State: adapter.SettlementFailed, ProviderCode: "failed"}, nil
	}
	// No attempts yet, or attempts still in flight.
	return adapter.Verdict{State: adapter.SettlementUnknown}, nil
}
