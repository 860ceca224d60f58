package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kioskpay/kiosk-coordinator-backend/db"
)

// TransactionEventType names a point along a transaction's lifecycle worth recording for audit.
type TransactionEventType string

const (
	EventTransactionCreated   TransactionEventType = "transaction_created"
	EventTransactionPaid      TransactionEventType = "transaction_paid"
	EventTransactionExpired   TransactionEventType = "transaction_expired"
	EventJobLeased            TransactionEventType = "job_leased"
	EventJobRetried           TransactionEventType = "job_retried"
	EventDispenseCompleted    TransactionEventType = "dispense_completed"
	EventDispenseFailed       TransactionEventType = "dispense_failed"
	EventTransactionCompleted TransactionEventType = "transaction_completed"
	EventTransactionFailed    TransactionEventType = "transaction_failed"
)

// TransactionEvent is one row in the append-only audit trail behind the admin events endpoint.
// Rows are never updated or deleted.
type TransactionEvent struct {
	ID            int64                `db:"id" json:"id"`
	TransactionID string               `db:"transaction_id" json:"transaction_id"`
	EventType     TransactionEventType `db:"event_type" json:"event_type"`
	Detail        json.RawMessage      `db:"detail" json:"detail,omitempty"`
	RequestID     *string              `db:"request_id" json:"request_id,omitempty"`
	CreatedAt     time.Time            `db:"created_at" json:"created_at"`
}

type TransactionEventModel struct {
	dbConnectionPool db.DBConnectionPool
}

// Record appends an audit row in the same database transaction as the state change it describes.
// detail, if non-nil, is marshaled to JSON; pass nil when there is nothing beyond the event type to
// note. requestID, if non-empty, ties the row back to the HTTP request that caused it.
func (m *TransactionEventModel) Record(ctx context.Context, sqlExec db.SQLExecuter, transactionID string, eventType TransactionEventType, requestID string, detail any) (*TransactionEvent, error) {
	var rawDetail json.RawMessage
	if detail != nil {
		marshaled, err := json.Marshal(detail)
		if err != nil {
			return nil, fmt.Errorf("marshaling detail for event %s on transaction %s: %w", eventType, transactionID, err)
		}
		rawDetail = marshaled
	}

	var reqID *string
	if requestID != "" {
		reqID = &requestID
	}

	const q = `
		INSERT INTO transaction_events (transaction_id, event_type, detail, request_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING *
	`

	var event TransactionEvent
	err := sqlExec.GetContext(ctx, &event, sqlExec.Rebind(q), transactionID, eventType, rawDetail, reqID)
	if err != nil {
		return nil, fmt.Errorf("recording event %s for transaction %s: %w", eventType, transactionID, err)
	}

	return &event, nil
}

// ListByTransaction returns every event for a transaction, oldest first, for the admin audit view.
func (m *TransactionEventModel) ListByTransaction(ctx context.Context, sqlExec db.SQLExecuter, transactionID string) ([]TransactionEvent, error) {
	const q = `SELECT * FROM transaction_events WHERE transaction_id = $1 ORDER BY id ASC`

	var events []TransactionEvent
	if err := sqlExec.SelectContext(ctx, &events, sqlExec.Rebind(q), transactionID); err != nil {
		return nil, fmt.Errorf("listing events for transaction %s: %w", transactionID, err)
	}

	return events, nil
}
