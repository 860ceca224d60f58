package httphandler

import (
	"net/http"

	"github.com/stellar/go/support/render/httpjson"

	"github.com/kioskpay/kiosk-coordinator-backend/db"
)

// Status indicates whether a health check passed or failed.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// HealthResponse is the coordinator's liveness payload. Hardware is always
// "not_applicable" here; the coin hopper is wired to the dispenser-node agent, not the
// coordinator, which never talks to it directly.
type HealthResponse struct {
	Status   Status `json:"status"`
	DB       Status `json:"db"`
	Hardware string `json:"hardware"`
}

// HealthHandler reports liveness and a best-effort database ping.
type HealthHandler struct {
	DBConnectionPool db.DBConnectionPool
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	dbStatus := StatusPass
	if err := h.DBConnectionPool.Ping(r.Context()); err != nil {
		dbStatus = StatusFail
	}

	status := StatusPass
	if dbStatus == StatusFail {
		status = StatusFail
	}

	httpjson.RenderStatus(w, http.StatusOK, HealthResponse{
		Status:   status,
		DB:       dbStatus,
		Hardware: "not_applicable",
	}, httpjson.JSON)
}
