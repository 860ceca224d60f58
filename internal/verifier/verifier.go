// Package verifier wraps the external identity/payment verification collaborator. It is an
// opaque HTTP call: the coordinator never caches responses and never retries on the caller's
// behalf. Nullifier uniqueness, not the verifier, is the replay defence.
package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stellar/go/support/log"

	"github.com/kioskpay/kiosk-coordinator-backend/internal/monitor"
)

// DefaultTimeout bounds the verifier call.
const DefaultTimeout = 10 * time.Second

// Request is the body sent to the verifier for a single payment proof.
type Request struct {
	Proof         string `json:"proof"`
	NullifierHash string `json:"nullifier_hash"`
	MerkleRoot    string `json:"merkle_root"`
	ActionID      string `json:"action_id"`
}

// Result is the verifier's decision for a Request.
type Result struct {
	Accepted bool
	Reason   string
}

// Verifier is the small surface TxCoordinator.Pay depends on.
type Verifier interface {
	Verify(ctx context.Context, req Request) (Result, error)
}

type wireResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// HTTPClient is implemented by *http.Client; kept as an interface so tests can substitute a
// fake round-tripper without standing up a server.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPVerifier calls an external verifier service over HTTP with a bounded timeout.
type HTTPVerifier struct {
	BaseURL        string
	Client         HTTPClient
	Timeout        time.Duration
	MonitorService monitor.MonitorServiceInterface
}

// NewHTTPVerifier builds an HTTPVerifier with a dedicated *http.Client carrying DefaultTimeout.
func NewHTTPVerifier(baseURL string, monitorService monitor.MonitorServiceInterface) *HTTPVerifier {
	return &HTTPVerifier{
		BaseURL:        baseURL,
		Client:         &http.Client{Timeout: DefaultTimeout},
		Timeout:        DefaultTimeout,
		MonitorService: monitorService,
	}
}

// recordRequestMetrics feeds the verifier request duration and total counters. Metric failures are
// logged and swallowed; a broken metrics pipeline must never fail a payment.
func (v *HTTPVerifier) recordRequestMetrics(ctx context.Context, duration time.Duration, resp *http.Response, reqErr error) {
	if v.MonitorService == nil {
		return
	}

	status, statusCode := monitor.ParseHTTPResponseStatus(resp, reqErr)
	labels := monitor.VerifierLabels{Status: status, StatusCode: statusCode}

	if err := v.MonitorService.MonitorDuration(duration, monitor.VerifierRequestDurationTag, labels.ToMap()); err != nil {
		log.Ctx(ctx).Errorf("monitoring verifier request duration: %s", err)
	}
	if err := v.MonitorService.MonitorCounters(monitor.VerifierRequestsTotalTag, labels.ToMap()); err != nil {
		log.Ctx(ctx).Errorf("monitoring verifier request count: %s", err)
	}
}

func (v *HTTPVerifier) Verify(ctx context.Context, req Request) (Result, error) {
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("marshaling verifier request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.BaseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("building verifier request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := v.Client.Do(httpReq)
	v.recordRequestMetrics(ctx, time.Since(start), resp, err)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{Accepted: false, Reason: "timeout"}, nil
		}
		return Result{}, fmt.Errorf("calling verifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{}, fmt.Errorf("verifier returned status %d", resp.StatusCode)
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return Result{}, fmt.Errorf("decoding verifier response: %w", err)
	}

	return Result{Accepted: wire.Success, Reason: wire.Error}, nil
}

// StagingAlwaysAcceptVerifier accepts every proof without contacting anything. It exists only for
// local development and staging smoke tests; cmd/serve.go refuses to start with this wired if
// --environment is "production".
type StagingAlwaysAcceptVerifier struct{}

func (StagingAlwaysAcceptVerifier) Verify(context.Context, Request) (Result, error) {
	return Result{Accepted: true}, nil
}
