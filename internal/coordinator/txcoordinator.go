// Package coordinator implements TxCoordinator: the thin glue over the Store that
// creates transactions, enforces expiry, applies a verified payment, and enqueues the resulting
// dispense job. It holds no mutable state of its own: every field on TxCoordinator is either a
// dependency or read-only configuration.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stellar/go/support/log"

	"github.com/kioskpay/kiosk-coordinator-backend/db"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/clock"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/coordinator/errs"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/data"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/idgen"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/monitor"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/verifier"
)

// Config holds the pricing and expiry knobs. Changing CoinUnit or FeeAmount on redeploy never
// rewrites transactions already created: every value is read once at Create time and baked into
// the row.
type Config struct {
	// CoinUnit is the denomination of a single dispensed coin, e.g. 0.25.
	CoinUnit decimal.Decimal
	// FeeAmount is the fixed fee added to every transaction's total.
	FeeAmount decimal.Decimal
	// AuthorizationWindow is how long a pending transaction remains payable.
	AuthorizationWindow time.Duration
	// MaxAmount is the inclusive cap on a transaction's fiat amount.
	MaxAmount decimal.Decimal
	// PayerBaseURL is templated with the new transaction id to build the payer deep link.
	PayerBaseURL string
}

// CreatedTransaction is the public payload returned by Create, matching the
// POST /transaction/create response shape.
type CreatedTransaction struct {
	ID        string
	Amount    decimal.Decimal
	Coins     int
	Total     decimal.Decimal
	QRURL     string
	ExpiresAt time.Time
	Status    data.TransactionStatus
}

// PaymentResult is the public payload returned by Pay.
type PaymentResult struct {
	JobID         string
	TransactionID string
	Coins         int
}

// TxCoordinator creates transactions, applies verified payments and enqueues dispense jobs.
type TxCoordinator struct {
	Models   *data.Models
	Clock    clock.Clock
	IDGen    idgen.Generator
	Verifier verifier.Verifier
	Config   Config
	// MonitorService, when set, counts transaction status transitions. Left nil in unit tests.
	MonitorService monitor.MonitorServiceInterface
}

func New(models *data.Models, clk clock.Clock, idGen idgen.Generator, v verifier.Verifier, cfg Config) *TxCoordinator {
	return &TxCoordinator{Models: models, Clock: clk, IDGen: idGen, Verifier: v, Config: cfg}
}

func (c *TxCoordinator) countTransaction(ctx context.Context, status data.TransactionStatus) {
	if c.MonitorService == nil {
		return
	}
	if err := c.MonitorService.MonitorCounters(monitor.TransactionsCounterTag, monitor.TransactionLabels{Status: string(status)}.ToMap()); err != nil {
		log.Ctx(ctx).Errorf("monitoring transaction counter: %s", err)
	}
}

// Create builds a new pending transaction for kioskID, computing coin count and total from the
// coordinator's current CoinUnit/FeeAmount configuration.
func (c *TxCoordinator) Create(ctx context.Context, kioskID string, amount decimal.Decimal) (*CreatedTransaction, error) {
	if kioskID == "" {
		return nil, errs.ErrInvalidKiosk
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", errs.ErrInvalidAmount)
	}
	if c.Config.MaxAmount.IsPositive() && amount.GreaterThan(c.Config.MaxAmount) {
		return nil, fmt.Errorf("%w: amount exceeds the %s cap", errs.ErrInvalidAmount, c.Config.MaxAmount.String())
	}

	coins := coinCount(amount, c.Config.CoinUnit)
	total := amount.Add(c.Config.FeeAmount)
	now := c.Clock.Now()
	expiresAt := now.Add(c.Config.AuthorizationWindow)
	txID := c.IDGen.NewID()

	tx, err := db.RunInTransactionWithResult(ctx, c.Models.DBConnectionPool, db.SerializableTxOptions, func(dbTx db.DBTransaction) (*data.Transaction, error) {
		if _, err := c.Models.Kiosks.Upsert(ctx, dbTx, kioskID); err != nil {
			return nil, fmt.Errorf("upserting kiosk: %w", err)
		}

		tx, err := c.Models.Transactions.Insert(ctx, dbTx, data.TransactionInsert{
			ID:           txID,
			KioskID:      kioskID,
			FiatAmount:   amount,
			CoinCount:    coins,
			TotalCharged: total,
			ExpiresAt:    expiresAt,
		})
		if err != nil {
			return nil, fmt.Errorf("inserting transaction: %w", err)
		}

		if _, err := c.Models.TransactionEvents.Record(ctx, dbTx, tx.ID, data.EventTransactionCreated, middleware.GetReqID(ctx), map[string]any{
			"kiosk_id": kioskID, "amount": amount.String(), "coins": coins,
		}); err != nil {
			return nil, fmt.Errorf("recording transaction_created event: %w", err)
		}

		return tx, nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating transaction: %w", err)
	}

	c.countTransaction(ctx, data.TransactionStatusPending)

	return &CreatedTransaction{
		ID:        tx.ID,
		Amount:    tx.FiatAmount,
		Coins:     tx.CoinCount,
		Total:     tx.TotalCharged,
		QRURL:     c.qrURL(tx.ID),
		ExpiresAt: tx.ExpiresAt,
		Status:    tx.Status,
	}, nil
}

// Pay verifies proof via the external verifier and, on acceptance, atomically marks the
// transaction paid and enqueues its dispense job. A repeat submit against a transaction that is
// no longer pending returns errs.ErrAlreadyProcessed; a nullifier already used to pay another
// transaction trips the nullifier's unique index and returns errs.ErrNullifierReused.
func (c *TxCoordinator) Pay(ctx context.Context, txID, proof, nullifierHash, merkleRoot string) (*PaymentResult, error) {
	tx, err := c.Models.Transactions.Get(ctx, c.Models.DBConnectionPool, txID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("looking up transaction %s: %w", txID, err)
	}

	switch tx.Status {
	case data.TransactionStatusExpired:
		return nil, errs.ErrExpired
	case data.TransactionStatusPaid, data.TransactionStatusDispensing, data.TransactionStatusCompleted, data.TransactionStatusFailed:
		return nil, errs.ErrAlreadyProcessed
	}

	now := c.Clock.Now()
	if !now.Before(tx.ExpiresAt) {
		// Mark the row expired right away instead of waiting for the janitor's next sweep, so a
		// follow-up Get answers "expired" immediately.
		expireErr := db.RunInTransaction(ctx, c.Models.DBConnectionPool, db.SerializableTxOptions, func(dbTx db.DBTransaction) error {
			if _, err := c.Models.Transactions.UpdateStatus(ctx, dbTx, txID, data.TransactionStatusPending, data.TransactionStatusExpired); err != nil {
				return err
			}
			_, err := c.Models.TransactionEvents.Record(ctx, dbTx, txID, data.EventTransactionExpired, middleware.GetReqID(ctx), nil)
			return err
		})
		if expireErr != nil {
			return nil, fmt.Errorf("expiring transaction %s: %w", txID, expireErr)
		}
		c.countTransaction(ctx, data.TransactionStatusExpired)
		return nil, errs.ErrExpired
	}

	result, err := c.Verifier.Verify(ctx, verifier.Request{
		Proof:         proof,
		NullifierHash: nullifierHash,
		MerkleRoot:    merkleRoot,
		ActionID:      txID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrVerifierUnavailable, err.Error())
	}
	if !result.Accepted {
		return nil, fmt.Errorf("%w: %s", errs.ErrVerificationRejected, result.Reason)
	}

	jobID := c.IDGen.NewID()
	job, err := db.RunInTransactionWithResult(ctx, c.Models.DBConnectionPool, db.SerializableTxOptions, func(dbTx db.DBTransaction) (*data.DispenseJob, error) {
		locked, err := c.Models.Transactions.GetForUpdate(ctx, dbTx, txID)
		if err != nil {
			return nil, fmt.Errorf("locking transaction %s: %w", txID, err)
		}
		if locked.Status != data.TransactionStatusPending {
			return nil, errs.ErrAlreadyProcessed
		}

		paid, err := c.Models.Transactions.MarkPaid(ctx, dbTx, txID, nullifierHash)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Constraint == "uq_transactions_nullifier_hash" {
				return nil, errs.ErrNullifierReused
			}
			return nil, fmt.Errorf("marking transaction %s paid: %w", txID, err)
		}

		job, err := c.Models.DispenseJobs.Insert(ctx, dbTx, jobID, paid.ID, paid.KioskID, paid.CoinCount)
		if err != nil {
			return nil, fmt.Errorf("enqueuing dispense job for transaction %s: %w", txID, err)
		}

		if _, err := c.Models.TransactionEvents.Record(ctx, dbTx, txID, data.EventTransactionPaid, middleware.GetReqID(ctx), map[string]any{
			"job_id": job.ID,
		}); err != nil {
			return nil, fmt.Errorf("recording transaction_paid event: %w", err)
		}

		return job, nil
	})
	if err != nil {
		return nil, err
	}

	c.countTransaction(ctx, data.TransactionStatusPaid)

	return &PaymentResult{JobID: job.ID, TransactionID: txID, Coins: job.CoinCount}, nil
}

// Describe projects the public view of a transaction, stripping kiosk id and nullifier.
func (c *TxCoordinator) Describe(ctx context.Context, txID string) (*data.TransactionView, error) {
	tx, err := c.Models.Transactions.Get(ctx, c.Models.DBConnectionPool, txID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("looking up transaction %s: %w", txID, err)
	}

	view := tx.Describe()
	return &view, nil
}

func (c *TxCoordinator) qrURL(txID string) string {
	return c.Config.PayerBaseURL + "/" + txID
}

// coinCount computes ceil(amount / unit).
func coinCount(amount, unit decimal.Decimal) int {
	if unit.IsZero() {
		return 0
	}
	return int(amount.Div(unit).Ceil().IntPart())
}
