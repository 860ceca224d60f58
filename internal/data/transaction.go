package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kioskpay/kiosk-coordinator-backend/db"
)

// TransactionStatus is the status column of a transaction row. Its allowed transitions are the DAG:
//
//	pending --(MarkPaid)--> paid --(job in_progress)--> dispensing --> completed
//	                                                                \-> failed
//	pending --(SweepExpired)--> expired
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusPaid       TransactionStatus = "paid"
	TransactionStatusDispensing TransactionStatus = "dispensing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusExpired    TransactionStatus = "expired"
)

// TransactionStatusTransitions is the authoritative transition table; there is no paid -> expired edge.
var TransactionStatusTransitions = []StateTransition{
	{From: State(TransactionStatusPending), To: State(TransactionStatusPaid)},
	{From: State(TransactionStatusPending), To: State(TransactionStatusExpired)},
	{From: State(TransactionStatusPaid), To: State(TransactionStatusDispensing)},
	{From: State(TransactionStatusDispensing), To: State(TransactionStatusCompleted)},
	{From: State(TransactionStatusDispensing), To: State(TransactionStatusFailed)},
}

func (s TransactionStatus) Validate() error {
	switch s {
	case TransactionStatusPending, TransactionStatusPaid, TransactionStatusDispensing,
		TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusExpired:
		return nil
	default:
		return fmt.Errorf("invalid transaction status %q", s)
	}
}

// TransitionTo reports whether moving from s to target is legal under TransactionStatusTransitions,
// without mutating s; callers persist the target status themselves once the Store's write succeeds.
func (s TransactionStatus) TransitionTo(target TransactionStatus) error {
	sm := NewStateMachine(State(s), TransactionStatusTransitions)
	return sm.TransitionTo(State(target))
}

// Transaction is the coordinator's record of a single authorize-then-dispense attempt.
type Transaction struct {
	ID            string            `db:"id"`
	KioskID       string            `db:"kiosk_id"`
	FiatAmount    decimal.Decimal   `db:"fiat_amount"`
	CoinCount     int               `db:"coin_count"`
	TotalCharged  decimal.Decimal   `db:"total_charged"`
	Status        TransactionStatus `db:"status"`
	NullifierHash sql.NullString    `db:"nullifier_hash"`
	CreatedAt     time.Time         `db:"created_at"`
	ExpiresAt     time.Time         `db:"expires_at"`
	PaidAt        sql.NullTime      `db:"paid_at"`
	CompletedAt   sql.NullTime      `db:"completed_at"`
	UpdatedAt     time.Time         `db:"updated_at"`
}

type TransactionModel struct {
	dbConnectionPool db.DBConnectionPool
}

// TransactionInsert is the set of caller-supplied fields for a new transaction; CoinCount,
// TotalCharged and ExpiresAt are derived by the coordinator before this reaches the Store.
type TransactionInsert struct {
	ID           string
	KioskID      string
	FiatAmount   decimal.Decimal
	CoinCount    int
	TotalCharged decimal.Decimal
	ExpiresAt    time.Time
}

func (ti TransactionInsert) Validate() error {
	if ti.ID == "" {
		return fmt.Errorf("id is required: %w", ErrMissingInput)
	}
	if ti.KioskID == "" {
		return fmt.Errorf("kioskID is required: %w", ErrMissingInput)
	}
	if !ti.FiatAmount.IsPositive() {
		return fmt.Errorf("fiatAmount must be positive: %w", ErrMissingInput)
	}
	if ti.CoinCount <= 0 {
		return fmt.Errorf("coinCount must be positive: %w", ErrMissingInput)
	}
	return nil
}

func (m *TransactionModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, insert TransactionInsert) (*Transaction, error) {
	if err := insert.Validate(); err != nil {
		return nil, fmt.Errorf("validating transaction insert: %w", err)
	}

	const q = `
		INSERT INTO transactions
			(id, kiosk_id, fiat_amount, coin_count, total_charged, status, created_at, expires_at)
		VALUES
			($1, $2, $3, $4, $5, $6, NOW(), $7)
		RETURNING *
	`

	var tx Transaction
	err := sqlExec.GetContext(ctx, &tx, sqlExec.Rebind(q),
		insert.ID, insert.KioskID, insert.FiatAmount, insert.CoinCount, insert.TotalCharged,
		TransactionStatusPending, insert.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("inserting transaction: %w", err)
	}

	return &tx, nil
}

func (m *TransactionModel) Get(ctx context.Context, sqlExec db.SQLExecuter, id string) (*Transaction, error) {
	const q = `SELECT * FROM transactions WHERE id = $1`

	var tx Transaction
	if err := sqlExec.GetContext(ctx, &tx, sqlExec.Rebind(q), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting transaction %s: %w", id, err)
	}

	return &tx, nil
}

// GetForUpdate locks the transaction row; TxCoordinator.Pay uses it to re-check the status inside
// the transaction that marks the row paid, serializing against a concurrent replay.
func (m *TransactionModel) GetForUpdate(ctx context.Context, dbTx db.DBTransaction, id string) (*Transaction, error) {
	const q = `SELECT * FROM transactions WHERE id = $1 FOR UPDATE`

	var tx Transaction
	if err := dbTx.GetContext(ctx, &tx, dbTx.Rebind(q), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting transaction %s for update: %w", id, err)
	}

	return &tx, nil
}

// MarkPaid flips a pending transaction to paid and stamps the nullifier used to pay it. The caller
// is responsible for checking expiry before calling this, and for mapping a unique-violation on
// nullifier_hash to NullifierReused. It must run inside the same database transaction as
// DispenseJobModel.Insert.
func (m *TransactionModel) MarkPaid(ctx context.Context, dbTx db.DBTransaction, id string, nullifierHash string) (*Transaction, error) {
	const q = `
		UPDATE transactions
		SET status = $1, nullifier_hash = $2, paid_at = NOW(), updated_at = NOW()
		WHERE id = $3 AND status = $4
		RETURNING *
	`

	var tx Transaction
	err := dbTx.GetContext(ctx, &tx, dbTx.Rebind(q), TransactionStatusPaid, nullifierHash, id, TransactionStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s is not pending: %w", id, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("marking transaction %s paid: %w", id, err)
	}

	return &tx, nil
}

// UpdateStatus moves a transaction from one status to another; it validates the transition against
// TransactionStatusTransitions before touching the row. MarkPaid and SweepExpired write their own
// status changes directly.
func (m *TransactionModel) UpdateStatus(ctx context.Context, dbTx db.DBTransaction, id string, from, to TransactionStatus) (*Transaction, error) {
	if err := from.TransitionTo(to); err != nil {
		return nil, fmt.Errorf("transaction %s: %w", id, err)
	}

	completedAtClause := "completed_at"
	if to == TransactionStatusCompleted || to == TransactionStatusFailed {
		completedAtClause = "NOW()"
	}

	q := fmt.Sprintf(`
		UPDATE transactions
		SET status = $1, updated_at = NOW(), completed_at = %s
		WHERE id = $2 AND status = $3
		RETURNING *
	`, completedAtClause)

	var tx Transaction
	err := dbTx.GetContext(ctx, &tx, dbTx.Rebind(q), to, id, from)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s is not in status %s: %w", id, from, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("updating transaction %s to %s: %w", id, to, err)
	}

	return &tx, nil
}

// SweepExpired marks every pending transaction whose expiry has passed as expired, returning the rows it expired.
func (m *TransactionModel) SweepExpired(ctx context.Context, sqlExec db.SQLExecuter) ([]Transaction, error) {
	const q = `
		UPDATE transactions
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND expires_at < NOW()
		RETURNING *
	`

	var expired []Transaction
	err := sqlExec.SelectContext(ctx, &expired, sqlExec.Rebind(q), TransactionStatusExpired, TransactionStatusPending)
	if err != nil {
		return nil, fmt.Errorf("sweeping expired transactions: %w", err)
	}

	return expired, nil
}

// List returns transactions matching queryParams, newest first by default. It backs the operator
// audit surface; the kiosk-facing API never lists transactions.
func (m *TransactionModel) List(ctx context.Context, sqlExec db.SQLExecuter, queryParams QueryParams) ([]Transaction, error) {
	qb := NewQueryBuilder(`SELECT * FROM transactions`)

	if status, ok := queryParams.Filters[FilterKeyStatus]; ok {
		qb.AddCondition(FilterKeyStatus.Equals(), status)
	}
	if kioskID, ok := queryParams.Filters[FilterKeyKioskID]; ok {
		qb.AddCondition(FilterKeyKioskID.Equals(), kioskID)
	}
	if before, ok := queryParams.Filters[FilterKeyCreatedAtBefore]; ok {
		qb.AddCondition("created_at < ?", before)
	}
	if after, ok := queryParams.Filters[FilterKeyCreatedAtAfter]; ok {
		qb.AddCondition("created_at > ?", after)
	}

	sortBy := queryParams.SortBy
	if sortBy == "" {
		sortBy = SortFieldCreatedAt
	}
	sortOrder := queryParams.SortOrder
	if sortOrder == "" {
		sortOrder = SortOrderDESC
	}
	qb.AddSorting(sortBy, sortOrder, "")

	if queryParams.Page > 0 && queryParams.PageLimit > 0 {
		qb.AddPagination(queryParams.Page, queryParams.PageLimit)
	}

	query, params := qb.BuildAndRebind(sqlExec)

	var transactions []Transaction
	if err := sqlExec.SelectContext(ctx, &transactions, query, params...); err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	return transactions, nil
}

// Describe projects the public, caller-facing view of a transaction, stripping the kiosk id and nullifier.
type TransactionView struct {
	ID        string            `json:"id"`
	Amount    decimal.Decimal   `json:"amount"`
	Coins     int               `json:"coins"`
	Total     decimal.Decimal   `json:"total"`
	Status    TransactionStatus `json:"status"`
	ExpiresAt time.Time         `json:"expires_at"`
}

func (tx Transaction) Describe() TransactionView {
	return TransactionView{
		ID:        tx.ID,
		Amount:    tx.FiatAmount,
		Coins:     tx.CoinCount,
		Total:     tx.TotalCharged,
		Status:    tx.Status,
		ExpiresAt: tx.ExpiresAt,
	}
}
