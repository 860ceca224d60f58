package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kioskpay/kiosk-coordinator-backend/db"
)

// JobStatus is the status column of a dispense_jobs row.
//
//	pending --(LeaseNextJob)--> in_progress --(success)--> completed
//	                                |        --(failure, attempts<ceiling)--> pending
//	                                |        --(failure, attempts>=ceiling)--> failed
//	                                +--(ReviveStuckLeases)--< pending | failed
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

var JobStatusTransitions = []StateTransition{
	{From: State(JobStatusPending), To: State(JobStatusInProgress)},
	{From: State(JobStatusInProgress), To: State(JobStatusCompleted)},
	{From: State(JobStatusInProgress), To: State(JobStatusPending)},
	{From: State(JobStatusInProgress), To: State(JobStatusFailed)},
}

func (s JobStatus) Validate() error {
	switch s {
	case JobStatusPending, JobStatusInProgress, JobStatusCompleted, JobStatusFailed:
		return nil
	default:
		return fmt.Errorf("invalid job status %q", s)
	}
}

func (s JobStatus) TransitionTo(target JobStatus) error {
	sm := NewStateMachine(State(s), JobStatusTransitions)
	return sm.TransitionTo(State(target))
}

const DefaultAttemptCeiling = 3

// DispenseJob is 1:1 with a transaction once it has been paid; terminal jobs (completed|failed) are immutable.
type DispenseJob struct {
	ID             string         `db:"id"`
	TransactionID  string         `db:"transaction_id"`
	KioskID        string         `db:"kiosk_id"`
	CoinCount      int            `db:"coin_count"`
	Status         JobStatus      `db:"status"`
	Attempts       int            `db:"attempts"`
	AttemptCeiling int            `db:"attempt_ceiling"`
	LastAttemptAt  sql.NullTime   `db:"last_attempt_at"`
	CompletedAt    sql.NullTime   `db:"completed_at"`
	LastError      sql.NullString `db:"last_error"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

type DispenseJobModel struct {
	dbConnectionPool db.DBConnectionPool
}

// Insert enqueues a pending job for a just-paid transaction. It must run in the same database
// transaction as TransactionModel.MarkPaid.
func (m *DispenseJobModel) Insert(ctx context.Context, dbTx db.DBTransaction, id, transactionID, kioskID string, coinCount int) (*DispenseJob, error) {
	const q = `
		INSERT INTO dispense_jobs
			(id, transaction_id, kiosk_id, coin_count, status, attempts, attempt_ceiling, created_at)
		VALUES
			($1, $2, $3, $4, $5, 0, $6, NOW())
		RETURNING *
	`

	var job DispenseJob
	err := dbTx.GetContext(ctx, &job, dbTx.Rebind(q), id, transactionID, kioskID, coinCount, JobStatusPending, DefaultAttemptCeiling)
	if err != nil {
		return nil, fmt.Errorf("enqueuing dispense job for transaction %s: %w", transactionID, err)
	}

	return &job, nil
}

func (m *DispenseJobModel) Get(ctx context.Context, sqlExec db.SQLExecuter, id string) (*DispenseJob, error) {
	const q = `SELECT * FROM dispense_jobs WHERE id = $1`

	var job DispenseJob
	if err := sqlExec.GetContext(ctx, &job, sqlExec.Rebind(q), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting dispense job %s: %w", id, err)
	}

	return &job, nil
}

// GetInProgressForKiosk returns the kiosk's single in-progress job, if any: the row the
// single-inflight partial unique index guarantees is unique.
func (m *DispenseJobModel) GetInProgressForKiosk(ctx context.Context, sqlExec db.SQLExecuter, kioskID string) (*DispenseJob, error) {
	const q = `SELECT * FROM dispense_jobs WHERE kiosk_id = $1 AND status = $2`

	var job DispenseJob
	err := sqlExec.GetContext(ctx, &job, sqlExec.Rebind(q), kioskID, JobStatusInProgress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting in-progress job for kiosk %s: %w", kioskID, err)
	}

	return &job, nil
}

// LeaseNextJob atomically promotes the oldest eligible pending job for kioskID to in_progress.
// Callers must first check GetInProgressForKiosk and return that job instead of leasing a new one,
// which is what gives the agent's dedupe-by-id logic somewhere to land on a re-poll.
func (m *DispenseJobModel) LeaseNextJob(ctx context.Context, dbTx db.DBTransaction, kioskID string) (*DispenseJob, error) {
	const q = `
		UPDATE dispense_jobs
		SET status = $1, last_attempt_at = NOW(), updated_at = NOW()
		WHERE id = (
			SELECT id FROM dispense_jobs
			WHERE kiosk_id = $2 AND status = $3 AND attempts < attempt_ceiling
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *
	`

	var job DispenseJob
	err := dbTx.GetContext(ctx, &job, dbTx.Rebind(q), JobStatusInProgress, kioskID, JobStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("leasing next job for kiosk %s: %w", kioskID, err)
	}

	return &job, nil
}

// JobOutcome is what CompleteJob did to the job and, transitively, the transaction.
type JobOutcome string

const (
	JobOutcomeCompleted JobOutcome = "success"
	JobOutcomeRetry     JobOutcome = "retry"
	JobOutcomeFailed    JobOutcome = "failed"
)

// GetForUpdate locks the job row so Report can validate ownership and in-progress status before
// mutating it.
func (m *DispenseJobModel) GetForUpdate(ctx context.Context, dbTx db.DBTransaction, id string) (*DispenseJob, error) {
	const q = `SELECT * FROM dispense_jobs WHERE id = $1 FOR UPDATE`

	var job DispenseJob
	if err := dbTx.GetContext(ctx, &job, dbTx.Rebind(q), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting dispense job %s for update: %w", id, err)
	}

	return &job, nil
}

// Complete transitions an in_progress job to completed, or back to pending/failed on failure
// depending on the attempt ceiling. The caller has already locked the row with GetForUpdate.
func (m *DispenseJobModel) Complete(ctx context.Context, dbTx db.DBTransaction, job *DispenseJob, success bool, errText string) (*DispenseJob, JobOutcome, error) {
	if success {
		const q = `
			UPDATE dispense_jobs
			SET status = $1, completed_at = NOW(), updated_at = NOW()
			WHERE id = $2 AND status = $3
			RETURNING *
		`
		var updated DispenseJob
		err := dbTx.GetContext(ctx, &updated, dbTx.Rebind(q), JobStatusCompleted, job.ID, JobStatusInProgress)
		if err != nil {
			return nil, "", fmt.Errorf("completing job %s: %w", job.ID, err)
		}
		return &updated, JobOutcomeCompleted, nil
	}

	newAttempts := job.Attempts + 1
	if newAttempts < job.AttemptCeiling {
		const q = `
			UPDATE dispense_jobs
			SET status = $1, attempts = $2, last_error = $3, updated_at = NOW()
			WHERE id = $4 AND status = $5
			RETURNING *
		`
		var updated DispenseJob
		err := dbTx.GetContext(ctx, &updated, dbTx.Rebind(q), JobStatusPending, newAttempts, errText, job.ID, JobStatusInProgress)
		if err != nil {
			return nil, "", fmt.Errorf("retrying job %s: %w", job.ID, err)
		}
		return &updated, JobOutcomeRetry, nil
	}

	const q = `
		UPDATE dispense_jobs
		SET status = $1, attempts = $2, last_error = $3, completed_at = NOW(), updated_at = NOW()
		WHERE id = $4 AND status = $5
		RETURNING *
	`
	var updated DispenseJob
	err := dbTx.GetContext(ctx, &updated, dbTx.Rebind(q), JobStatusFailed, newAttempts, errText, job.ID, JobStatusInProgress)
	if err != nil {
		return nil, "", fmt.Errorf("failing job %s: %w", job.ID, err)
	}
	return &updated, JobOutcomeFailed, nil
}

// ReviveStuckLeases reclaims jobs stuck in_progress past maxAge: incrementing attempts and resetting
// to pending if under the ceiling, or marking failed (transaction failed, via the caller) otherwise.
func (m *DispenseJobModel) ReviveStuckLeases(ctx context.Context, dbTx db.DBTransaction, maxAge time.Duration) ([]DispenseJob, error) {
	const selectQ = `
		SELECT * FROM dispense_jobs
		WHERE status = $1 AND last_attempt_at < $2
		FOR UPDATE SKIP LOCKED
	`

	var stuck []DispenseJob
	cutoff := time.Now().Add(-maxAge)
	if err := dbTx.SelectContext(ctx, &stuck, dbTx.Rebind(selectQ), JobStatusInProgress, cutoff); err != nil {
		return nil, fmt.Errorf("selecting stuck leases: %w", err)
	}

	revived := make([]DispenseJob, 0, len(stuck))
	for _, job := range stuck {
		newAttempts := job.Attempts + 1
		var updated DispenseJob
		if newAttempts < job.AttemptCeiling {
			const q = `
				UPDATE dispense_jobs
				SET status = $1, attempts = $2, last_error = $3, updated_at = NOW()
				WHERE id = $4
				RETURNING *
			`
			err := dbTx.GetContext(ctx, &updated, dbTx.Rebind(q), JobStatusPending, newAttempts, "stuck lease revived", job.ID)
			if err != nil {
				return nil, fmt.Errorf("reviving stuck job %s: %w", job.ID, err)
			}
		} else {
			const q = `
				UPDATE dispense_jobs
				SET status = $1, attempts = $2, last_error = $3, completed_at = NOW(), updated_at = NOW()
				WHERE id = $4
				RETURNING *
			`
			err := dbTx.GetContext(ctx, &updated, dbTx.Rebind(q), JobStatusFailed, newAttempts, "stuck lease exhausted ceiling", job.ID)
			if err != nil {
				return nil, fmt.Errorf("failing stuck job %s: %w", job.ID, err)
			}
		}
		revived = append(revived, updated)
	}

	return revived, nil
}
