package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kioskpay/kiosk-coordinator-backend/internal/hardware"
)

type fakePoller struct {
	mu sync.Mutex

	jobs        []*Job
	pollIdx     int
	reportErrs  map[string]int // jobID -> number of failures before success
	completions []completion
}

type completion struct {
	jobID   string
	success bool
	reason  string
}

func (f *fakePoller) PollPendingJob(ctx context.Context) (*Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollIdx >= len(f.jobs) {
		return nil, nil
	}
	job := f.jobs[f.pollIdx]
	f.pollIdx++
	return job, nil
}

func (f *fakePoller) ReportComplete(ctx context.Context, jobID string, success bool, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if remaining, ok := f.reportErrs[jobID]; ok && remaining > 0 {
		f.reportErrs[jobID] = remaining - 1
		return errors.New("simulated network error")
	}
	f.completions = append(f.completions, completion{jobID, success, reason})
	return nil
}

func TestDispenseAgent_Tick_ActuatesAndReportsSuccess(t *testing.T) {
	poller := &fakePoller{jobs: []*Job{{ID: "job-1", CoinCount: 4}}}
	driver := &hardware.FakeDriver{}
	a := New("kiosk-1", poller, driver)

	found := a.tick(context.Background())
	require.True(t, found)
	assert.Equal(t, []int{4}, driver.Dispensed)
	require.Len(t, poller.completions, 1)
	assert.Equal(t, completion{"job-1", true, ""}, poller.completions[0])
	assert.Equal(t, "job-1", a.lastCompletedJobID)
}

func TestDispenseAgent_Tick_NoJobReturnsFalse(t *testing.T) {
	poller := &fakePoller{}
	a := New("kiosk-1", poller, &hardware.FakeDriver{})

	assert.False(t, a.tick(context.Background()))
}

func TestDispenseAgent_Tick_HardwareFaultReportsFailureWithoutPanicking(t *testing.T) {
	poller := &fakePoller{jobs: []*Job{{ID: "job-1", CoinCount: 4}}}
	driver := &hardware.FakeDriver{FaultOn: 1}
	a := New("kiosk-1", poller, driver)

	found := a.tick(context.Background())
	require.True(t, found)
	require.Len(t, poller.completions, 1)
	assert.False(t, poller.completions[0].success)
	assert.NotEmpty(t, poller.completions[0].reason)
	assert.Empty(t, a.lastCompletedJobID)
}

func TestDispenseAgent_Tick_DedupesRepeatOfLastCompletedJob(t *testing.T) {
	poller := &fakePoller{jobs: []*Job{{ID: "job-1", CoinCount: 4}, {ID: "job-1", CoinCount: 4}}}
	driver := &hardware.FakeDriver{}
	a := New("kiosk-1", poller, driver)

	require.True(t, a.tick(context.Background()))
	require.True(t, a.tick(context.Background()))

	assert.Equal(t, 1, driver.Calls(), "second tick must not re-dispense a job already reported complete")
	assert.Len(t, poller.completions, 2)
}

func TestDispenseAgent_Report_RetriesUntilAccepted(t *testing.T) {
	poller := &fakePoller{
		jobs:       []*Job{{ID: "job-1", CoinCount: 4}},
		reportErrs: map[string]int{"job-1": 2},
	}
	driver := &hardware.FakeDriver{}
	a := New("kiosk-1", poller, driver)
	a.reportRetryDelay = time.Millisecond

	a.report(context.Background(), map[string]interface{}{"job_id": "job-1"}, "job-1", true, "")
	require.Len(t, poller.completions, 1)
	assert.True(t, poller.completions[0].success)
}
