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
	expiredTransactionSweepJobName             = "expired_transaction_sweep_job"
	expiredTransactionSweepJobIntervalSeconds  = 60
)

// ExpiredTransactionSweepJob is the Janitor's first sweep: every pending transaction
// whose authorization window has passed is marked expired, freeing its nullifier slot for nothing
// (a transaction never gets a second nullifier) but letting Get/Pay answer Expired on next read.
type ExpiredTransactionSweepJob struct {
	models         *data.Models
	monitorService monitor.MonitorServiceInterface
}

func NewExpiredTransactionSweepJob(models *data.Models, monitorService monitor.MonitorServiceInterface) *ExpiredTransactionSweepJob {
	return &ExpiredTransactionSweepJob{models: models, monitorService: monitorService}
}

func (j ExpiredTransactionSweepJob) GetName() string {
	return expiredTransactionSweepJobName
}

func (j ExpiredTransactionSweepJob) GetInterval() time.Duration {
	return expiredTransactionSweepJobIntervalSeconds * time.Second
}

func (j ExpiredTransactionSweepJob) Execute(ctx context.Context) error {
	expired, err := db.RunInTransactionWithResult(ctx, j.models.DBConnectionPool, db.SerializableTxOptions, func(dbTx db.DBTransaction) ([]data.Transaction, error) {
		swept, err := j.models.Transactions.SweepExpired(ctx, dbTx)
		if err != nil {
			return nil, err
		}
		for _, tx := range swept {
			if _, err := j.models.TransactionEvents.Record(ctx, dbTx, tx.ID, data.EventTransactionExpired, "", nil); err != nil {
				return nil, fmt.Errorf("recording transaction_expired event for %s: %w", tx.ID, err)
			}
		}
		return swept, nil
	})
	if err != nil {
		return err
	}
	if len(expired) > 0 {
		log.Ctx(ctx).Infof("%s: expired %d transaction(s)", expiredTransactionSweepJobName, len(expired))
		if j.monitorService != nil {
			if err := j.monitorService.MonitorCounterAdd(monitor.ExpiredTransactionsSweptCounterTag, float64(len(expired)), nil); err != nil {
				log.Ctx(ctx).Errorf("monitoring expired transaction sweep: %s", err)
			}
			if err := j.monitorService.MonitorCounterAdd(monitor.TransactionsCounterTag, float64(len(expired)), monitor.TransactionLabels{Status: string(data.TransactionStatusExpired)}.ToMap()); err != nil {
				log.Ctx(ctx).Errorf("monitoring expired transaction counter: %s", err)
			}
		}
	}
	return nil
}
