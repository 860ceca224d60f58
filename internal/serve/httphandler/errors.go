package httphandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/lib/pq"

	"github.com/kioskpay/kiosk-coordinator-backend/internal/coordinator/errs"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/serve/httperror"
)

// kindOf maps a coordinator/jobqueue sentinel to the machine-readable kind string returned in
// the error response's "error" field. Detail text goes in the response's "detail" field.
func kindOf(err error) (kind string, status int) {
	switch {
	case errors.Is(err, errs.ErrInvalidAmount):
		return "InvalidAmount", http.StatusBadRequest
	case errors.Is(err, errs.ErrInvalidKiosk):
		return "InvalidKiosk", http.StatusBadRequest
	case errors.Is(err, errs.ErrMalformedRequest):
		return "MalformedRequest", http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return "NotFound", http.StatusNotFound
	case errors.Is(err, errs.ErrExpired):
		return "Expired", http.StatusBadRequest
	case errors.Is(err, errs.ErrAlreadyProcessed):
		return "AlreadyProcessed", http.StatusConflict
	case errors.Is(err, errs.ErrNullifierReused):
		return "NullifierReused", http.StatusConflict
	case errors.Is(err, errs.ErrJobOwnershipMismatch):
		return "JobOwnershipMismatch", http.StatusForbidden
	case errors.Is(err, errs.ErrJobNotInProgress):
		return "JobNotInProgress", http.StatusConflict
	case errors.Is(err, errs.ErrVerificationRejected):
		return "VerificationRejected", http.StatusBadRequest
	case errors.Is(err, errs.ErrVerifierUnavailable):
		return "VerifierUnavailable", http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrDatabaseUnavailable):
		return "DatabaseUnavailable", http.StatusServiceUnavailable
	default:
		return "", 0
	}
}

// isTransientDBError reports whether err is a Postgres failure a client can safely retry:
// serialization conflicts from the serializable transactions, deadlocks, and connection drops.
func isTransientDBError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01" || pqErr.Code.Class() == "08"
}

// renderDomainError translates a domain sentinel into the coordinator's HTTP error response. It
// falls through to httperror.InternalError, which reports the error, for anything unrecognized.
func renderDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	kind, status := kindOf(err)
	if status == 0 && isTransientDBError(err) {
		kind, status = "DatabaseUnavailable", http.StatusServiceUnavailable
	}
	if status == 0 {
		httperror.InternalError(ctx, "", err, nil).Render(w)
		return
	}

	httperror.NewHTTPError(status, kind, err, nil).WithDetail(err.Error()).Render(w)
}
