package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout bounds every call the agent makes to the coordinator.
const DefaultTimeout = 5 * time.Second

// Job is the wire shape of a single pending dispense job, as returned by GET /jobs/pending.
type Job struct {
	ID        string `json:"id"`
	CoinCount int    `json:"coin_count"`
}

type completeRequest struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// HTTPClient is implemented by *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CoordinatorClient is the kiosk-side HTTP client for the coordinator's job polling surface.
// Every request carries the kiosk's id in the X-Kiosk-Id header.
type CoordinatorClient struct {
	BaseURL string
	KioskID string
	Client  HTTPClient
	Timeout time.Duration
}

func NewCoordinatorClient(baseURL, kioskID string) *CoordinatorClient {
	return &CoordinatorClient{
		BaseURL: baseURL,
		KioskID: kioskID,
		Client:  &http.Client{Timeout: DefaultTimeout},
		Timeout: DefaultTimeout,
	}
}

// PollPendingJob fetches the kiosk's current job, if any. A nil Job with a nil error means there
// is nothing to dispense right now.
func (c *CoordinatorClient) PollPendingJob(ctx context.Context) (*Job, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/jobs/pending", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("polling pending job: unexpected status %d", resp.StatusCode)
	}

	// The body is either a job object or literal null when there is nothing to dispense.
	var job *Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("decoding pending job response: %w", err)
	}

	return job, nil
}

// ReportComplete tells the coordinator the outcome of dispensing jobID.
func (c *CoordinatorClient) ReportComplete(ctx context.Context, jobID string, success bool, dispenseErr string) error {
	payload, err := json.Marshal(completeRequest{Success: success, Error: dispenseErr})
	if err != nil {
		return fmt.Errorf("marshaling job completion: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/jobs/"+jobID+"/complete", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("reporting job %s complete: unexpected status %d", jobID, resp.StatusCode)
	}

	return nil
}

func (c *CoordinatorClient) newRequest(ctx context.Context, method, path string, body *bytes.Reader) (*http.Request, error) {
	var reqBody *bytes.Reader
	if body != nil {
		reqBody = body
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building request to %s: %w", path, err)
	}
	req.Header.Set("X-Kiosk-Id", c.KioskID)
	return req, nil
}

func (c *CoordinatorClient) do(req *http.Request) (*http.Response, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	defer cancel()

	resp, err := c.Client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("calling coordinator: %w", err)
	}
	return resp, nil
}
