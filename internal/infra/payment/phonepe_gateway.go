package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"media-subscription-platform/internal/domain/ports/adapter"
	"media-subscription-platform/internal/infra/metrics"
)

var _ adapter.StatusGateway = (*PhonePeGateway)(nil)

// PhonePeGateway resolves payment references against the PhonePe status API.
type PhonePeGateway struct {
	merchantID string
	saltKey    string
	saltIndex  int
	baseURL    string
	client     *http.Client
}

func NewPhonePeGateway(merchantID, saltKey string, saltIndex int, baseURL string, timeout time.Duration) *PhonePeGateway {
	return &PhonePeGateway{
		merchantID: merchantID,
		saltKey:    saltKey,
		saltIndex:  saltIndex,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: timeout},
	}
}

func (g *PhonePeGateway) Name() string { return "phonepe" }

type phonePeStatusResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		Amount                int64  `json:"amount"` // paise
		State                 string `json:"state"`
		ResponseCode          string `json:"responseCode"`
	} `json:"data"`
}

// phonePeFailureCodes are the terminal failure answers. Anything not listed
// here and not a success stays Unknown so the reconciler retries it.
var phonePeFailureCodes = map[string]bool{
	"PAYMENT_ERROR":         true,
	"PAYMENT_DECLINED":      true,
	"TIMED_OUT":             true,
	"TRANSACTION_NOT_FOUND": true,
}

// QueryStatus performs the checksum-signed status call. The verify header is
// sha256(path + saltKey) suffixed with "###" and the salt index.
func (g *PhonePeGateway) QueryStatus(ctx context.Context, paymentRef string) (adapter.Verdict, error) {
	started := time.Now()
	defer func() {
		metrics.ObserveGatewayQueryDuration(g.Name(), time.Since(started).Seconds())
	}()

	path := fmt.Sprintf("/pg/v1/status/%s/%s", g.merchantID, paymentRef)
	sum := sha256.Sum256([]byte(path + g.saltKey))
	verify := hex.EncodeToString(sum[:]) + "###" + strconv.Itoa(g.saltIndex)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return unknownVerdict(), fmt.Errorf("phonepe: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VERIFY", verify)
	req.Header.Set("X-MERCHANT-ID", g.merchantID)

	resp, err := g.client.Do(req)
	if err != nil {
		return unknownVerdict(), fmt.Errorf("phonepe: status call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return unknownVerdict(), fmt.Errorf("phonepe: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return unknownVerdict(), fmt.Errorf("phonepe: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed phonePeStatusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return unknownVerdict(), fmt.Errorf("phonepe: unmarshal response: %w", err)
	}

	switch {
	case parsed.Code == "PAYMENT_SUCCESS" || parsed.Data.State == "COMPLETED":
		return adapter.Verdict{
			State:         adapter.SettlementCompleted,
			SettledAmount: parsed.Data.Amount,
			ProviderCode:  parsed.Code,
		}, nil
	case phonePeFailureCodes[parsed.Code]:
		return adapter.Verdict{State: adapter.SettlementFailed, ProviderCode: parsed.Code}, nil
	default:
		// PAYMENT_PENDING and anything unrecognized.
		return adapter.Verdict{State: adapter.SettlementUnknown, ProviderCode: parsed.Code}, nil
	}
}

func unknownVerdict() adapter.Verdict {
	return adapter.Verdict{State: adapter.SettlementUnknown}
}
