// Package agent implements DispenseAgent, the long-running node-side loop: identify, poll,
// dedupe, actuate, report, idle. It is the only part of the system that talks to the coin
// mechanism, and it is deliberately single-threaded: one job is actuated at a time, in order,
// never overlapping a dispense with a poll or a report.
package agent

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/stellar/go/support/log"

	"github.com/kioskpay/kiosk-coordinator-backend/internal/hardware"
)

// PollInterval is how long the agent sleeps after finding no job.
const PollInterval = 2 * time.Second

// Poller is the subset of CoordinatorClient the loop depends on, so tests can substitute a fake
// without an HTTP round trip.
type Poller interface {
	PollPendingJob(ctx context.Context) (*Job, error)
	ReportComplete(ctx context.Context, jobID string, success bool, dispenseErr string) error
}

// DispenseAgent runs the poll/actuate/report loop for a single kiosk id.
type DispenseAgent struct {
	KioskID string
	Client  Poller
	Driver  hardware.Driver

	// lastCompletedJobID is the in-memory dedupe cache: if the coordinator hands back a job the
	// agent already actuated, it reports success again without touching the hopper. It is rebuilt
	// empty on restart; a crash between Actuate and Report is resolved by the stuck-lease sweeper,
	// not by this field.
	lastCompletedJobID string

	// reportRetryDelay is the base backoff between report retries; tests shrink it.
	reportRetryDelay time.Duration
}

func New(kioskID string, client Poller, driver hardware.Driver) *DispenseAgent {
	return &DispenseAgent{KioskID: kioskID, Client: client, Driver: driver, reportRetryDelay: time.Second}
}

// Run loops until ctx is cancelled, polling, actuating and reporting one job at a time.
func (a *DispenseAgent) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if a.tick(ctx) {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(PollInterval):
		}
	}
}

// tick runs one poll/actuate/report cycle and returns true if a job was found, so Run can skip the
// idle sleep and re-poll immediately.
func (a *DispenseAgent) tick(ctx context.Context) bool {
	fields := log.F{"kiosk_id": a.KioskID}

	job, err := a.Client.PollPendingJob(ctx)
	if err != nil {
		log.Ctx(ctx).WithFields(fields).WithField("error", err.Error()).Error("polling pending job")
		return false
	}
	if job == nil {
		return false
	}

	fields["job_id"] = job.ID

	if job.ID == a.lastCompletedJobID {
		log.Ctx(ctx).WithFields(fields).Info("job already actuated, re-reporting success without dispensing again")
		a.report(ctx, fields, job.ID, true, "")
		return true
	}

	dispenseErr := a.actuate(ctx, job)
	success := dispenseErr == nil
	reason := ""
	if dispenseErr != nil {
		reason = dispenseErr.Error()
		log.Ctx(ctx).WithFields(fields).WithField("error", reason).Error("dispense attempt failed")
	}

	a.report(ctx, fields, job.ID, success, reason)
	if success {
		a.lastCompletedJobID = job.ID
	}

	return true
}

func (a *DispenseAgent) actuate(ctx context.Context, job *Job) error {
	ctx, cancel := context.WithTimeout(ctx, hardware.DefaultTimeout)
	defer cancel()

	if err := a.Driver.Dispense(ctx, job.CoinCount); err != nil {
		return err
	}
	return nil
}

// report retries against the coordinator until the report is accepted or ctx is cancelled, never
// re-actuating in between: a lost outcome is the stuck-lease sweeper's problem to reconcile, not
// a reason to dispense twice.
func (a *DispenseAgent) report(ctx context.Context, fields log.F, jobID string, success bool, reason string) {
	err := retry.Do(
		func() error {
			return a.Client.ReportComplete(ctx, jobID, success, reason)
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(a.reportRetryDelay),
		retry.MaxDelay(30*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).WithFields(fields).WithField("error", err.Error()).Warn("reporting job outcome failed, retrying")
		}),
	)
	if err != nil && !errors.Is(ctx.Err(), context.Canceled) {
		log.Ctx(ctx).WithFields(fields).WithField("error", err.Error()).Error("reporting job outcome abandoned")
	}
}
