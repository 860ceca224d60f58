package httphandler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stellar/go/support/render/httpjson"

	"github.com/kioskpay/kiosk-coordinator-backend/internal/coordinator/errs"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/data"
)

// AdminHandler serves the operator audit surface behind BasicAuthMiddleware,
// a supplemental read-only window onto the append-only transaction_events trail.
type AdminHandler struct {
	Models *data.Models
}

const (
	defaultListPageLimit = 50
	maxListPageLimit     = 500
)

// ListTransactions handles GET /admin/transactions. Operators filter by status and kiosk to find
// the transactions that need manual reconciliation, e.g. ?status=failed.
func (h AdminHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filters := map[data.FilterKey]interface{}{}
	if status := r.URL.Query().Get("status"); status != "" {
		if err := data.TransactionStatus(status).Validate(); err != nil {
			renderDomainError(ctx, w, fmt.Errorf("%w: %s", errs.ErrMalformedRequest, err))
			return
		}
		filters[data.FilterKeyStatus] = status
	}
	if kioskID := r.URL.Query().Get("kiosk_id"); kioskID != "" {
		filters[data.FilterKeyKioskID] = kioskID
	}

	page := parsePositiveIntQueryParam(r, "page", 1)
	pageLimit := parsePositiveIntQueryParam(r, "page_limit", defaultListPageLimit)
	if pageLimit > maxListPageLimit {
		pageLimit = maxListPageLimit
	}

	transactions, err := h.Models.Transactions.List(ctx, h.Models.DBConnectionPool, data.QueryParams{
		Page:      page,
		PageLimit: pageLimit,
		SortBy:    data.SortFieldCreatedAt,
		SortOrder: data.SortOrderDESC,
		Filters:   filters,
	})
	if err != nil {
		renderDomainError(ctx, w, err)
		return
	}

	views := make([]adminTransactionView, 0, len(transactions))
	for _, tx := range transactions {
		views = append(views, newAdminTransactionView(tx))
	}

	httpjson.RenderStatus(w, http.StatusOK, views, httpjson.JSON)
}

// adminTransactionView is the operator's projection of a transaction row. Unlike the public view
// it carries the kiosk id, since reconciliation means walking to a specific machine.
type adminTransactionView struct {
	ID          string     `json:"id"`
	KioskID     string     `json:"kiosk_id"`
	Amount      string     `json:"amount"`
	Coins       int        `json:"coins"`
	Total       string     `json:"total"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func newAdminTransactionView(tx data.Transaction) adminTransactionView {
	view := adminTransactionView{
		ID:        tx.ID,
		KioskID:   tx.KioskID,
		Amount:    tx.FiatAmount.StringFixed(2),
		Coins:     tx.CoinCount,
		Total:     tx.TotalCharged.StringFixed(2),
		Status:    string(tx.Status),
		CreatedAt: tx.CreatedAt,
		ExpiresAt: tx.ExpiresAt,
	}
	if tx.PaidAt.Valid {
		paidAt := tx.PaidAt.Time
		view.PaidAt = &paidAt
	}
	if tx.CompletedAt.Valid {
		completedAt := tx.CompletedAt.Time
		view.CompletedAt = &completedAt
	}
	return view
}

func parsePositiveIntQueryParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// TransactionEvents handles GET /admin/transactions/{id}/events.
func (h AdminHandler) TransactionEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID := chi.URLParam(r, "id")

	events, err := h.Models.TransactionEvents.ListByTransaction(ctx, h.Models.DBConnectionPool, txID)
	if err != nil {
		renderDomainError(ctx, w, err)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, events, httpjson.JSON)
}
