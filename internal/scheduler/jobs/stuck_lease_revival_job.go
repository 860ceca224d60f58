package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/stellar/go/support/log"

	"github.com/kioskpay/kiosk-coordinator-backend/db"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/data"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/monitor"
)

const (
	stuckLeaseRevivalJobName           = "stuck_lease_revival_job"
	stuckLeaseRevivalJobIntervalSeconds = 60
)

// DefaultStuckLeaseMaxAge is how long an in_progress job may go unreported before the Janitor
// reclaims its lease: long enough that a slow but healthy dispense never gets
// raced out from under the agent still working it.
const DefaultStuckLeaseMaxAge = 2 * time.Minute

// StuckLeaseRevivalJob is the Janitor's second sweep: it reclaims dispense_jobs left in_progress
// past DefaultStuckLeaseMaxAge, either returning them to pending for a future lease or, once the
// attempt ceiling is reached, failing the job and its transaction.
type StuckLeaseRevivalJob struct {
	models         *data.Models
	maxAge         time.Duration
	monitorService monitor.MonitorServiceInterface
}

func NewStuckLeaseRevivalJob(models *data.Models, maxAge time.Duration, monitorService monitor.MonitorServiceInterface) *StuckLeaseRevivalJob {
	if maxAge <= 0 {
		maxAge = DefaultStuckLeaseMaxAge
	}
	return &StuckLeaseRevivalJob{models: models, maxAge: maxAge, monitorService: monitorService}
}

func (j StuckLeaseRevivalJob) GetName() string {
	return stuckLeaseRevivalJobName
}

func (j StuckLeaseRevivalJob) GetInterval() time.Duration {
	return stuckLeaseRevivalJobIntervalSeconds * time.Second
}

func (j StuckLeaseRevivalJob) Execute(ctx context.Context) error {
	revived, err := db.RunInTransactionWithResult(ctx, j.models.DBConnectionPool, db.SerializableTxOptions, func(dbTx db.DBTransaction) ([]data.DispenseJob, error) {
		jobs, err := j.models.DispenseJobs.ReviveStuckLeases(ctx, dbTx, j.maxAge)
		if err != nil {
			return nil, err
		}

		for _, revivedJob := range jobs {
			if revivedJob.Status != data.JobStatusFailed {
				continue
			}
			if _, err := j.models.Transactions.UpdateStatus(ctx, dbTx, revivedJob.TransactionID, data.TransactionStatusDispensing, data.TransactionStatusFailed); err != nil {
				return nil, fmt.Errorf("failing transaction %s for exhausted stuck lease %s: %w", revivedJob.TransactionID, revivedJob.ID, err)
			}
			if _, err := j.models.TransactionEvents.Record(ctx, dbTx, revivedJob.TransactionID, data.EventDispenseFailed, "", map[string]any{
				"job_id": revivedJob.ID, "reason": "stuck lease exceeded attempt ceiling",
			}); err != nil {
				return nil, fmt.Errorf("recording dispense_failed event for %s: %w", revivedJob.TransactionID, err)
			}
		}

		return jobs, nil
	})
	if err != nil {
		return err
	}

	if len(revived) > 0 {
		log.Ctx(ctx).Infof("%s: revived %d stuck lease(s)", stuckLeaseRevivalJobName, len(revived))
		if j.monitorService != nil {
			if err := j.monitorService.MonitorCounterAdd(monitor.StuckLeasesRevivedCounterTag, float64(len(revived)), nil); err != nil {
				log.Ctx(ctx).Errorf("monitoring stuck lease revival: %s", err)
			}
		}
	}
	return nil
}
