package httphandler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stellar/go/support/render/httpjson"

	"github.com/kioskpay/kiosk-coordinator-backend/internal/coordinator"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/coordinator/errs"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/serve/middleware"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/utils"
)

// TransactionHandler serves the attendant/payer-facing transaction lifecycle:
// create, pay, and poll status. It holds no state beyond the coordinator it delegates to.
type TransactionHandler struct {
	Coordinator *coordinator.TxCoordinator
}

type createTransactionRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type createTransactionResponse struct {
	ID        string    `json:"id"`
	Amount    string    `json:"amount"`
	Coins     int       `json:"coins"`
	Total     string    `json:"total"`
	QRURL     string    `json:"qr_url"`
	ExpiresAt time.Time `json:"expires_at"`
	Status    string    `json:"status"`
}

// Create handles POST /transaction/create.
func (h TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	kioskID, _ := middleware.KioskIDFromContext(ctx)

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderDomainError(ctx, w, fmt.Errorf("%w: invalid request body", errs.ErrMalformedRequest))
		return
	}

	amount, err := utils.ValidateFiatAmount(req.Amount.String())
	if err != nil {
		renderDomainError(ctx, w, fmt.Errorf("%w: %s", errs.ErrInvalidAmount, err))
		return
	}

	created, err := h.Coordinator.Create(ctx, kioskID, amount)
	if err != nil {
		renderDomainError(ctx, w, err)
		return
	}

	httpjson.RenderStatus(w, http.StatusCreated, createTransactionResponse{
		ID:        created.ID,
		Amount:    created.Amount.StringFixed(2),
		Coins:     created.Coins,
		Total:     created.Total.StringFixed(2),
		QRURL:     created.QRURL,
		ExpiresAt: created.ExpiresAt,
		Status:    string(created.Status),
	}, httpjson.JSON)
}

type payTransactionRequest struct {
	TransactionID string `json:"transaction_id"`
	Proof         string `json:"proof"`
	NullifierHash string `json:"nullifier_hash"`
	MerkleRoot    string `json:"merkle_root"`
}

type payTransactionResponse struct {
	Status        string `json:"status"`
	JobID         string `json:"job_id"`
	TransactionID string `json:"transaction_id"`
	Coins         int    `json:"coins"`
}

// Pay handles POST /transaction/pay.
func (h TransactionHandler) Pay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req payTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderDomainError(ctx, w, fmt.Errorf("%w: invalid request body", errs.ErrMalformedRequest))
		return
	}
	for _, field := range []struct {
		name      string
		value     string
		maxLength int
	}{
		{"transaction_id", req.TransactionID, 64},
		{"proof", req.Proof, 8192},
		{"nullifier_hash", req.NullifierHash, 256},
		{"merkle_root", req.MerkleRoot, 256},
	} {
		if err := utils.ValidateStringLength(field.value, field.name, field.maxLength); err != nil {
			renderDomainError(ctx, w, fmt.Errorf("%w: %s", errs.ErrMalformedRequest, err))
			return
		}
	}

	result, err := h.Coordinator.Pay(ctx, req.TransactionID, req.Proof, req.NullifierHash, req.MerkleRoot)
	if err != nil {
		renderDomainError(ctx, w, err)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, payTransactionResponse{
		Status:        "payment_complete",
		JobID:         result.JobID,
		TransactionID: result.TransactionID,
		Coins:         result.Coins,
	}, httpjson.JSON)
}

// Get handles GET /transaction/{id}.
func (h TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID := chi.URLParam(r, "id")

	view, err := h.Coordinator.Describe(ctx, txID)
	if err != nil {
		renderDomainError(ctx, w, err)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, view, httpjson.JSON)
}
