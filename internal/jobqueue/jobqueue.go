// Package jobqueue implements JobQueue, the agent-facing surface over the Store's
// dispense_jobs table: lease the next job for a kiosk and report its outcome. Each operation runs
// inside a single database transaction; JobQueue itself holds no state.
package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stellar/go/support/log"

	"github.com/kioskpay/kiosk-coordinator-backend/db"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/coordinator/errs"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/data"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/monitor"
)

// JobView is the public payload returned by Next, matching the GET /jobs/pending response shape.
type JobView struct {
	ID        string `json:"id"`
	CoinCount int    `json:"coin_count"`
}

// JobQueue is the glue over DispenseJobModel the agent's Poll step talks to.
type JobQueue struct {
	Models         *data.Models
	MonitorService monitor.MonitorServiceInterface
}

func New(models *data.Models, monitorService monitor.MonitorServiceInterface) *JobQueue {
	return &JobQueue{Models: models, MonitorService: monitorService}
}

// countMetric feeds a queue counter, logging and swallowing failures: metrics must never fail a
// lease or a report.
func (q *JobQueue) countMetric(ctx context.Context, tag monitor.MetricTag, labels map[string]string) {
	if q.MonitorService == nil {
		return
	}
	if err := q.MonitorService.MonitorCounters(tag, labels); err != nil {
		log.Ctx(ctx).Errorf("monitoring %s: %s", tag, err)
	}
}

// Next returns the kiosk's pending dispense job, if any. A kiosk that already holds an in_progress
// job gets that same job back rather than a fresh lease, which is what lets the agent re-poll
// after a crash and pick up exactly where it left off.
func (q *JobQueue) Next(ctx context.Context, kioskID string) (*JobView, error) {
	if kioskID == "" {
		return nil, errs.ErrInvalidKiosk
	}

	job, err := db.RunInTransactionWithResult(ctx, q.Models.DBConnectionPool, db.SerializableTxOptions, func(dbTx db.DBTransaction) (*data.DispenseJob, error) {
		if _, err := q.Models.Kiosks.Upsert(ctx, dbTx, kioskID); err != nil {
			return nil, fmt.Errorf("upserting kiosk %s: %w", kioskID, err)
		}

		inProgress, err := q.Models.DispenseJobs.GetInProgressForKiosk(ctx, dbTx, kioskID)
		if err == nil {
			return inProgress, nil
		}
		if !errors.Is(err, data.ErrRecordNotFound) {
			return nil, fmt.Errorf("checking in-progress job for kiosk %s: %w", kioskID, err)
		}

		leased, err := q.Models.DispenseJobs.LeaseNextJob(ctx, dbTx, kioskID)
		if err != nil {
			if errors.Is(err, data.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("leasing next job for kiosk %s: %w", kioskID, err)
		}

		// The first lease of a job is also the only point at which its transaction moves into
		// dispensing; a re-lease of an already-revived job finds the transaction already there.
		if leased.Attempts == 0 {
			if _, err := q.Models.Transactions.UpdateStatus(ctx, dbTx, leased.TransactionID, data.TransactionStatusPaid, data.TransactionStatusDispensing); err != nil {
				return nil, fmt.Errorf("marking transaction %s dispensing: %w", leased.TransactionID, err)
			}
		}

		if _, err := q.Models.TransactionEvents.Record(ctx, dbTx, leased.TransactionID, data.EventJobLeased, middleware.GetReqID(ctx), map[string]any{
			"job_id": leased.ID, "kiosk_id": kioskID,
		}); err != nil {
			return nil, fmt.Errorf("recording job_leased event: %w", err)
		}

		return leased, nil
	})
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	q.countMetric(ctx, monitor.JobLeasesCounterTag, nil)

	return &JobView{ID: job.ID, CoinCount: job.CoinCount}, nil
}

// Report records the outcome of kioskID's attempt at jobID. Success moves the job (and its
// transaction) to completed. Failure either returns the job to pending for a future lease, or, once
// the attempt ceiling is reached, fails the job and its transaction. A report against a job that is
// no longer in_progress, or owned by a different kiosk, is rejected rather than silently
// accepted. The exception is a second report against an already-settled job by the owning kiosk,
// which is treated as a no-op so a retried HTTP call from the agent can't double-apply.
func (q *JobQueue) Report(ctx context.Context, jobID, kioskID string, success bool, errText string) (data.JobOutcome, error) {
	if kioskID == "" {
		return "", errs.ErrInvalidKiosk
	}

	var outcome data.JobOutcome
	var applied bool
	err := db.RunInTransaction(ctx, q.Models.DBConnectionPool, db.SerializableTxOptions, func(dbTx db.DBTransaction) error {
		job, err := q.Models.DispenseJobs.GetForUpdate(ctx, dbTx, jobID)
		if err != nil {
			if errors.Is(err, data.ErrRecordNotFound) {
				return errs.ErrNotFound
			}
			return fmt.Errorf("locking job %s: %w", jobID, err)
		}

		if job.KioskID != kioskID {
			return errs.ErrJobOwnershipMismatch
		}

		if job.Status != data.JobStatusInProgress {
			switch job.Status {
			case data.JobStatusCompleted:
				outcome = data.JobOutcomeCompleted
				return nil
			case data.JobStatusFailed:
				outcome = data.JobOutcomeFailed
				return nil
			default:
				return errs.ErrJobNotInProgress
			}
		}

		updated, jobOutcome, err := q.Models.DispenseJobs.Complete(ctx, dbTx, job, success, errText)
		if err != nil {
			return fmt.Errorf("completing job %s: %w", jobID, err)
		}
		outcome = jobOutcome
		applied = true

		return q.applyOutcome(ctx, dbTx, updated, jobOutcome, errText)
	})
	if err != nil {
		return "", err
	}

	// Only a first acknowledgement moves counters; an idempotent re-report is invisible here.
	if applied {
		q.countMetric(ctx, monitor.JobOutcomesCounterTag, monitor.JobOutcomeLabels{Outcome: string(outcome)}.ToMap())
		switch outcome {
		case data.JobOutcomeCompleted:
			q.countMetric(ctx, monitor.TransactionsCounterTag, monitor.TransactionLabels{Status: string(data.TransactionStatusCompleted)}.ToMap())
		case data.JobOutcomeFailed:
			q.countMetric(ctx, monitor.TransactionsCounterTag, monitor.TransactionLabels{Status: string(data.TransactionStatusFailed)}.ToMap())
		}
	}

	return outcome, nil
}

func (q *JobQueue) applyOutcome(ctx context.Context, dbTx db.DBTransaction, job *data.DispenseJob, outcome data.JobOutcome, errText string) error {
	switch outcome {
	case data.JobOutcomeCompleted:
		if _, err := q.Models.Transactions.UpdateStatus(ctx, dbTx, job.TransactionID, data.TransactionStatusDispensing, data.TransactionStatusCompleted); err != nil {
			return fmt.Errorf("marking transaction %s completed: %w", job.TransactionID, err)
		}
		_, err := q.Models.TransactionEvents.Record(ctx, dbTx, job.TransactionID, data.EventDispenseCompleted, middleware.GetReqID(ctx), map[string]any{"job_id": job.ID})
		return err

	case data.JobOutcomeRetry:
		_, err := q.Models.TransactionEvents.Record(ctx, dbTx, job.TransactionID, data.EventJobRetried, middleware.GetReqID(ctx), map[string]any{
			"job_id": job.ID, "attempts": job.Attempts, "error": errText,
		})
		return err

	case data.JobOutcomeFailed:
		if _, err := q.Models.Transactions.UpdateStatus(ctx, dbTx, job.TransactionID, data.TransactionStatusDispensing, data.TransactionStatusFailed); err != nil {
			return fmt.Errorf("marking transaction %s failed: %w", job.TransactionID, err)
		}
		_, err := q.Models.TransactionEvents.Record(ctx, dbTx, job.TransactionID, data.EventDispenseFailed, middleware.GetReqID(ctx), map[string]any{
			"job_id": job.ID, "error": errText,
		})
		return err

	default:
		return fmt.Errorf("unhandled job outcome %q", outcome)
	}
}
