package serve

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	supporthttp "github.com/stellar/go/support/http"
	"github.com/stellar/go/support/log"

	"github.com/kioskpay/kiosk-coordinator-backend/db"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/coordinator"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/crashtracker"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/data"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/jobqueue"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/monitor"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/serve/httphandler"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/serve/middleware"
)

const ServiceID = "serve"

type HTTPServerInterface interface {
	Run(conf supporthttp.Config)
}

type HTTPServer struct{}

func (h *HTTPServer) Run(conf supporthttp.Config) {
	supporthttp.Run(conf)
}

// ServeOptions holds everything the coordinator's HTTP surface needs to run.
type ServeOptions struct {
	Environment        string
	GitCommit          string
	Port               int
	Version            string
	MonitorService     monitor.MonitorServiceInterface
	DBConnectionPool   db.DBConnectionPool
	Models             *data.Models
	Coordinator        *coordinator.TxCoordinator
	JobQueue           *jobqueue.JobQueue
	CorsAllowedOrigins []string
	CrashTrackerClient crashtracker.CrashTrackerClient
	AdminAccount       string
	AdminAPIKey        string
}

func (opts *ServeOptions) Validate() error {
	if opts.Coordinator == nil {
		return fmt.Errorf("coordinator cannot be nil")
	}
	if opts.JobQueue == nil {
		return fmt.Errorf("job queue cannot be nil")
	}
	if opts.Models == nil {
		return fmt.Errorf("models cannot be nil")
	}
	if opts.DBConnectionPool == nil {
		return fmt.Errorf("database connection pool cannot be nil")
	}
	if opts.CrashTrackerClient == nil {
		return fmt.Errorf("crash tracker client cannot be nil")
	}
	if opts.AdminAccount == "" || opts.AdminAPIKey == "" {
		return fmt.Errorf("admin account and admin API key are required")
	}
	return nil
}

func Serve(opts ServeOptions, httpServer HTTPServerInterface) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("validating serve options: %w", err)
	}

	// Call crash tracker FlushEvents to flush buffered events before the server terminates
	defer opts.CrashTrackerClient.FlushEvents(2 * time.Second)
	// Call crash tracker Recover for recover from unhandled panics
	defer opts.CrashTrackerClient.Recover()

	listenAddr := fmt.Sprintf(":%d", opts.Port)
	serverConfig := supporthttp.Config{
		ListenAddr:          listenAddr,
		Handler:             handleHTTP(opts),
		TCPKeepAlive:        time.Minute * 3,
		ShutdownGracePeriod: time.Second * 50,
		ReadTimeout:         time.Second * 5,
		WriteTimeout:        time.Second * 35,
		IdleTimeout:         time.Minute * 2,
		OnStarting: func() {
			log.Info("Starting coordinator server")
			log.Infof("Listening on %s", listenAddr)
		},
		OnStopping: func() {
			log.Info("Closing the coordinator database connection pool")
			if err := db.CloseConnectionPoolIfNeeded(context.Background(), opts.DBConnectionPool); err != nil {
				log.Errorf("error closing database connection: %v", err)
			}
			log.Info("Stopping coordinator server")
		},
	}
	httpServer.Run(serverConfig)
	return nil
}

const (
	rateLimitPer20Seconds = 40
	rateLimitWindow       = 20 * time.Second
)

func handleHTTP(o ServeOptions) *chi.Mux {
	mux := chi.NewMux()

	mux.Use(middleware.CorsMiddleware(o.CorsAllowedOrigins))
	// Rate limits requests made with the pair <IP, endpoint>.
	mux.Use(httprate.Limit(
		rateLimitPer20Seconds,
		rateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
	))
	mux.Use(chimiddleware.RequestID)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.RecoverHandler)
	mux.Use(middleware.MetricsRequestHandler(o.MonitorService))

	mux.Get("/health", httphandler.HealthHandler{DBConnectionPool: o.DBConnectionPool}.ServeHTTP)

	transactionHandler := httphandler.TransactionHandler{Coordinator: o.Coordinator}

	// Payer-facing routes: the payer's personal device carries no kiosk identity, so these are
	// unauthenticated; the rate limiter above is what blunts brute-force nullifier guessing.
	mux.Post("/transaction/pay", transactionHandler.Pay)
	mux.Get("/transaction/{id}", transactionHandler.Get)

	// Kiosk-scoped routes: attendant display and dispenser-node agent, identified by X-Kiosk-Id.
	mux.Group(func(r chi.Router) {
		r.Use(middleware.RequireKioskID)

		r.Post("/transaction/create", transactionHandler.Create)

		jobHandler := httphandler.JobHandler{JobQueue: o.JobQueue}
		r.Get("/jobs/pending", jobHandler.Pending)
		r.Post("/jobs/{id}/complete", jobHandler.Complete)
	})

	// Operator audit surface, gated separately from kiosk traffic.
	mux.Group(func(r chi.Router) {
		r.Use(middleware.BasicAuthMiddleware(o.AdminAccount, o.AdminAPIKey))

		adminHandler := httphandler.AdminHandler{Models: o.Models}
		r.Get("/admin/transactions", adminHandler.ListTransactions)
		r.Get("/admin/transactions/{id}/events", adminHandler.TransactionEvents)
	})

	return mux
}
