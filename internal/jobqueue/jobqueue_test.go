package jobqueue

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kioskpay/kiosk-coordinator-backend/internal/clock"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/coordinator"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/coordinator/errs"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/data"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/idgen"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/verifier"
)

func newPaidJob(t *testing.T, models *data.Models, kioskID string) (txID string, coins int) {
	tc := coordinator.New(models, clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)), idgen.NewSequential("tx"),
		&verifier.FakeVerifier{Result: verifier.Result{Accepted: true}}, coordinator.Config{
			CoinUnit:            decimal.NewFromFloat(0.25),
			FeeAmount:           decimal.Zero,
			AuthorizationWindow: 5 * time.Minute,
			MaxAmount:           decimal.NewFromInt(100),
			PayerBaseURL:        "https://pay.example.com",
		})

	created, err := tc.Create(context.Background(), kioskID, decimal.NewFromFloat(1.00))
	require.NoError(t, err)
	_, err = tc.Pay(context.Background(), created.ID, "proof", created.ID+"-nullifier", "root")
	require.NoError(t, err)

	return created.ID, created.Coins
}

func TestJobQueue_Next_LeasesPendingJob(t *testing.T) {
	models := data.SetupModels(t)
	_, coins := newPaidJob(t, models, "kiosk-1")

	q := New(models, nil)
	job, err := q.Next(context.Background(), "kiosk-1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, coins, job.CoinCount)
}

func TestJobQueue_Next_RepollReturnsSameInProgressJob(t *testing.T) {
	models := data.SetupModels(t)
	newPaidJob(t, models, "kiosk-1")

	q := New(models, nil)
	first, err := q.Next(context.Background(), "kiosk-1")
	require.NoError(t, err)
	second, err := q.Next(context.Background(), "kiosk-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestJobQueue_Next_NoJobReturnsNil(t *testing.T) {
	models := data.SetupModels(t)
	q := New(models, nil)

	job, err := q.Next(context.Background(), "kiosk-idle")
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestJobQueue_Report_SuccessCompletesJobAndTransaction(t *testing.T) {
	models := data.SetupModels(t)
	txID, _ := newPaidJob(t, models, "kiosk-1")

	q := New(models, nil)
	job, err := q.Next(context.Background(), "kiosk-1")
	require.NoError(t, err)

	outcome, err := q.Report(context.Background(), job.ID, "kiosk-1", true, "")
	require.NoError(t, err)
	assert.Equal(t, data.JobOutcomeCompleted, outcome)

	tx, err := models.Transactions.Get(context.Background(), models.DBConnectionPool, txID)
	require.NoError(t, err)
	assert.Equal(t, data.TransactionStatusCompleted, tx.Status)
}

func TestJobQueue_Report_FailureBelowCeilingReturnsJobToPending(t *testing.T) {
	models := data.SetupModels(t)
	newPaidJob(t, models, "kiosk-1")

	q := New(models, nil)
	job, err := q.Next(context.Background(), "kiosk-1")
	require.NoError(t, err)

	outcome, err := q.Report(context.Background(), job.ID, "kiosk-1", false, "jam")
	require.NoError(t, err)
	assert.Equal(t, data.JobOutcomeRetry, outcome)

	next, err := q.Next(context.Background(), "kiosk-1")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, job.ID, next.ID)
}

func TestJobQueue_Report_FailureAtCeilingFailsTransaction(t *testing.T) {
	models := data.SetupModels(t)
	txID, _ := newPaidJob(t, models, "kiosk-1")

	q := New(models, nil)
	for i := 0; i < data.DefaultAttemptCeiling; i++ {
		job, err := q.Next(context.Background(), "kiosk-1")
		require.NoError(t, err)
		require.NotNil(t, job)
		_, err = q.Report(context.Background(), job.ID, "kiosk-1", false, "jam")
		require.NoError(t, err)
	}

	tx, err := models.Transactions.Get(context.Background(), models.DBConnectionPool, txID)
	require.NoError(t, err)
	assert.Equal(t, data.TransactionStatusFailed, tx.Status)

	job, err := q.Next(context.Background(), "kiosk-1")
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestJobQueue_Report_OwnershipMismatchIsRejected(t *testing.T) {
	models := data.SetupModels(t)
	newPaidJob(t, models, "kiosk-1")

	q := New(models, nil)
	job, err := q.Next(context.Background(), "kiosk-1")
	require.NoError(t, err)

	_, err = q.Report(context.Background(), job.ID, "kiosk-2", true, "")
	assert.ErrorIs(t, err, errs.ErrJobOwnershipMismatch)
}

func TestJobQueue_Report_SecondReportOnTerminalJobIsNoOp(t *testing.T) {
	models := data.SetupModels(t)
	newPaidJob(t, models, "kiosk-1")

	q := New(models, nil)
	job, err := q.Next(context.Background(), "kiosk-1")
	require.NoError(t, err)

	_, err = q.Report(context.Background(), job.ID, "kiosk-1", true, "")
	require.NoError(t, err)
	_, err = q.Report(context.Background(), job.ID, "kiosk-1", true, "")
	assert.NoError(t, err)
}
