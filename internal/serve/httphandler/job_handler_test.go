package httphandler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payForJob(t *testing.T, env *handlerTestEnv, kioskID string) (txID string) {
	t.Helper()

	created := env.createTransaction(t, kioskID, "5.00")
	rr := env.request(t, http.MethodPost, "/transaction/pay", kioskID,
		`{"transaction_id": "`+created.ID+`", "proof": "proof", "nullifier_hash": "`+created.ID+`-null", "merkle_root": "root"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return created.ID
}

func leasePendingJob(t *testing.T, env *handlerTestEnv, kioskID string) map[string]interface{} {
	t.Helper()

	rr := env.request(t, http.MethodGet, "/jobs/pending", kioskID, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var job map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &job))
	return job
}

func Test_JobHandler_Pending_NoJobRendersNull(t *testing.T) {
	env := newHandlerTestEnv(t)

	rr := env.request(t, http.MethodGet, "/jobs/pending", "kiosk-idle", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "null", rr.Body.String())
}

func Test_JobHandler_Pending_LeasesAndRepollsSameJob(t *testing.T) {
	env := newHandlerTestEnv(t)
	payForJob(t, env, "kiosk-1")

	first := leasePendingJob(t, env, "kiosk-1")
	assert.Equal(t, float64(20), first["coin_count"])

	second := leasePendingJob(t, env, "kiosk-1")
	assert.Equal(t, first["id"], second["id"])
}

func Test_JobHandler_Complete_SuccessThenIdempotentReReport(t *testing.T) {
	env := newHandlerTestEnv(t)
	txID := payForJob(t, env, "kiosk-1")

	job := leasePendingJob(t, env, "kiosk-1")
	jobID := job["id"].(string)

	rr := env.request(t, http.MethodPost, "/jobs/"+jobID+"/complete", "kiosk-1", `{"success": true}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"status": "success"}`, rr.Body.String())

	// A retried acknowledgement is accepted as a no-op.
	rr = env.request(t, http.MethodPost, "/jobs/"+jobID+"/complete", "kiosk-1", `{"success": true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "success"}`, rr.Body.String())

	view := env.request(t, http.MethodGet, "/transaction/"+txID, "kiosk-1", "")
	require.Equal(t, http.StatusOK, view.Code)
	assert.Contains(t, view.Body.String(), `"completed"`)
}

func Test_JobHandler_Complete_RetryThenTerminalFailure(t *testing.T) {
	env := newHandlerTestEnv(t)
	txID := payForJob(t, env, "kiosk-1")

	// Attempts 1 and 2 fail and return the job to pending; attempt 3 is terminal.
	for attempt := 1; attempt <= 3; attempt++ {
		job := leasePendingJob(t, env, "kiosk-1")
		jobID := job["id"].(string)

		rr := env.request(t, http.MethodPost, "/jobs/"+jobID+"/complete", "kiosk-1", `{"success": false, "error": "coin jam"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		if attempt < 3 {
			assert.JSONEq(t, `{"status": "retry"}`, rr.Body.String())
		} else {
			assert.JSONEq(t, `{"status": "failed"}`, rr.Body.String())
		}
	}

	// No further leases for an exhausted job.
	rr := env.request(t, http.MethodGet, "/jobs/pending", "kiosk-1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "null", rr.Body.String())

	view := env.request(t, http.MethodGet, "/transaction/"+txID, "kiosk-1", "")
	require.Equal(t, http.StatusOK, view.Code)
	assert.Contains(t, view.Body.String(), `"failed"`)
}

func Test_JobHandler_Complete_OwnershipMismatch(t *testing.T) {
	env := newHandlerTestEnv(t)
	payForJob(t, env, "kiosk-1")

	job := leasePendingJob(t, env, "kiosk-1")
	jobID := job["id"].(string)

	rr := env.request(t, http.MethodPost, "/jobs/"+jobID+"/complete", "kiosk-2", `{"success": true}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	var errResp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errResp))
	assert.Equal(t, "JobOwnershipMismatch", errResp.Error)
}

func Test_JobHandler_Complete_UnknownJob(t *testing.T) {
	env := newHandlerTestEnv(t)

	rr := env.request(t, http.MethodPost, "/jobs/does-not-exist/complete", "kiosk-1", `{"success": true}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
