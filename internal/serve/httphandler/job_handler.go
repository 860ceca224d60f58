package httphandler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stellar/go/support/render/httpjson"

	"github.com/kioskpay/kiosk-coordinator-backend/internal/coordinator/errs"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/jobqueue"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/serve/middleware"
)

// JobHandler serves the agent-facing poll/report surface.
type JobHandler struct {
	JobQueue *jobqueue.JobQueue
}

// Pending handles GET /jobs/pending. The body is the leased job view, or literal null when the
// kiosk has nothing to dispense.
func (h JobHandler) Pending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kioskID, _ := middleware.KioskIDFromContext(ctx)

	job, err := h.JobQueue.Next(ctx, kioskID)
	if err != nil {
		renderDomainError(ctx, w, err)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, job, httpjson.JSON)
}

type completeJobRequest struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type completeJobResponse struct {
	Status string `json:"status"`
}

// Complete handles POST /jobs/{id}/complete.
func (h JobHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kioskID, _ := middleware.KioskIDFromContext(ctx)
	jobID := chi.URLParam(r, "id")

	var req completeJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderDomainError(ctx, w, fmt.Errorf("%w: invalid request body", errs.ErrMalformedRequest))
		return
	}

	outcome, err := h.JobQueue.Report(ctx, jobID, kioskID, req.Success, req.Error)
	if err != nil {
		renderDomainError(ctx, w, err)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, completeJobResponse{Status: string(outcome)}, httpjson.JSON)
}
