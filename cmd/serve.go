package cmd

import (
	"go/types"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stellar/go/support/config"
	"github.com/stellar/go/support/log"

	cmdUtils "github.com/kioskpay/kiosk-coordinator-backend/cmd/utils"
	"github.com/kioskpay/kiosk-coordinator-backend/db"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/clock"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/coordinator"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/crashtracker"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/data"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/idgen"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/jobqueue"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/monitor"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/scheduler"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/serve"
	coreUtils "github.com/kioskpay/kiosk-coordinator-backend/internal/utils"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/verifier"
)

type ServeCommand struct{}

// ServerServiceInterface decouples ServeCommand from the concrete serve package so tests can
// substitute a fake.
type ServerServiceInterface interface {
	StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface)
	StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface)
}

type ServerService struct{}

var _ ServerServiceInterface = (*ServerService)(nil)

func (s *ServerService) StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface) {
	if err := serve.Serve(opts, httpServer); err != nil {
		log.Fatalf("Error starting server: %s", err.Error())
	}
}

func (s *ServerService) StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface) {
	if err := serve.MetricsServe(opts, httpServer); err != nil {
		log.Fatalf("Error starting metrics server: %s", err.Error())
	}
}

type serveCommandConfigOptions struct {
	Port               int
	MetricsPort        int
	MetricType         monitor.MetricType
	CorsAllowedOrigins []string
	DBPoolOptions      cmdUtils.DBPoolOptions
	CrashTrackerType   crashtracker.CrashTrackerType

	CoinUnit                   float64
	FeeAmount                  float64
	AuthorizationWindowSeconds int
	MaxAmount                  float64

	PayerBaseURL string

	VerifierBaseURL        string
	VerifierTimeoutSeconds int
	StagingAlwaysAccept    bool

	AdminAccount string
	AdminAPIKey  string

	StuckLeaseMaxAgeSeconds int
}

func (c *ServeCommand) Command(serverService ServerServiceInterface, monitorService monitor.MonitorServiceInterface) *cobra.Command {
	opts := serveCommandConfigOptions{}

	configOpts := config.ConfigOptions{
		{
			Name:        "port",
			Usage:       "Port where the coordinator server will listen",
			OptType:     types.Int,
			ConfigKey:   &opts.Port,
			FlagDefault: 8000,
			Required:    true,
		},
		{
			Name:        "metrics-port",
			Usage:       "Port where the /metrics endpoint will be served",
			OptType:     types.Int,
			ConfigKey:   &opts.MetricsPort,
			FlagDefault: 8002,
			Required:    true,
		},
		{
			Name:           "metrics-type",
			Usage:          `Metric monitor type. Options: "PROMETHEUS"`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionMetricType,
			ConfigKey:      &opts.MetricType,
			FlagDefault:    "PROMETHEUS",
			Required:       true,
		},
		{
			Name:           "cors-allowed-origins",
			Usage:          "Comma-separated list of CORS allowed origins",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetCorsAllowedOrigins,
			ConfigKey:      &opts.CorsAllowedOrigins,
			FlagDefault:    "*",
			Required:       true,
		},
		cmdUtils.CrashTrackerTypeConfigOption(&opts.CrashTrackerType),
		{
			Name:        "coin-unit",
			Usage:       "The denomination of a single dispensed coin, e.g. 0.25",
			OptType:     types.Float64,
			ConfigKey:   &opts.CoinUnit,
			FlagDefault: 0.25,
			Required:    true,
		},
		{
			Name:        "fee-amount",
			Usage:       "The fixed fee added to every transaction's total",
			OptType:     types.Float64,
			ConfigKey:   &opts.FeeAmount,
			FlagDefault: 0.5,
			Required:    false,
		},
		{
			Name:        "authorization-window-seconds",
			Usage:       "How long, in seconds, a pending transaction remains payable before it expires",
			OptType:     types.Int,
			ConfigKey:   &opts.AuthorizationWindowSeconds,
			FlagDefault: 900,
			Required:    true,
		},
		{
			Name:        "max-amount",
			Usage:       "The inclusive cap on a transaction's fiat amount",
			OptType:     types.Float64,
			ConfigKey:   &opts.MaxAmount,
			FlagDefault: 100.0,
			Required:    true,
		},
		{
			Name:        "payer-base-url",
			Usage:       "Base URL of the payer-side client app; the QR deep link is this URL plus the transaction id",
			OptType:     types.String,
			ConfigKey:   &opts.PayerBaseURL,
			FlagDefault: "http://localhost:3000",
			Required:    true,
		},
		{
			Name:      "verifier-base-url",
			Usage:     "Base URL of the payment verifier service. Required unless --staging-always-accept-verifier is set.",
			OptType:   types.String,
			ConfigKey: &opts.VerifierBaseURL,
			Required:  false,
		},
		{
			Name:        "verifier-timeout-seconds",
			Usage:       "Timeout, in seconds, for calls to the payment verifier service",
			OptType:     types.Int,
			ConfigKey:   &opts.VerifierTimeoutSeconds,
			FlagDefault: 10,
			Required:    false,
		},
		{
			Name:        "staging-always-accept-verifier",
			Usage:       "Use the always-accept verifier instead of calling a real verifier service. Refused when the environment is production.",
			OptType:     types.Bool,
			ConfigKey:   &opts.StagingAlwaysAccept,
			FlagDefault: false,
			Required:    false,
		},
		{
			Name:      "admin-account",
			Usage:     "The basic-auth username for the operator audit endpoints",
			OptType:   types.String,
			ConfigKey: &opts.AdminAccount,
			Required:  true,
		},
		{
			Name:      "admin-api-key",
			Usage:     "The basic-auth password for the operator audit endpoints",
			OptType:   types.String,
			ConfigKey: &opts.AdminAPIKey,
			Required:  true,
		},
		{
			Name:        "stuck-lease-max-age-seconds",
			Usage:       "How long an in_progress dispense job may go unreported before the janitor reclaims its lease",
			OptType:     types.Int,
			ConfigKey:   &opts.StuckLeaseMaxAgeSeconds,
			FlagDefault: 120,
			Required:    false,
		},
	}
	configOpts = append(configOpts, cmdUtils.DBPoolConfigOptions(&opts.DBPoolOptions)...)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the coordinator's HTTP server",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmdUtils.DefaultPersistentPreRun(cmd, args)
			configOpts.Require()
			if err := configOpts.SetValues(); err != nil {
				log.Ctx(cmd.Context()).Fatalf("Error setting values of config options: %s", err.Error())
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()

			if opts.StagingAlwaysAccept && globalOptions.environment == "production" {
				log.Ctx(ctx).Fatal("staging-always-accept-verifier cannot be used in the production environment")
			}
			if !opts.StagingAlwaysAccept && opts.VerifierBaseURL == "" {
				log.Ctx(ctx).Fatal("either --verifier-base-url or --staging-always-accept-verifier must be set")
			}
			if opts.VerifierBaseURL != "" {
				if err := coreUtils.ValidateURLScheme(opts.VerifierBaseURL, "http", "https"); err != nil {
					log.Ctx(ctx).Fatalf("invalid --verifier-base-url: %s", err.Error())
				}
			}

			crashTrackerOptions := crashtracker.CrashTrackerOptions{CrashTrackerType: opts.CrashTrackerType}
			globalOptions.populateCrashTrackerOptions(&crashTrackerOptions)
			crashTrackerClient, err := crashtracker.GetClient(ctx, crashTrackerOptions)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating crash tracker client: %s", err.Error())
			}

			if err := monitorService.Start(monitor.MetricOptions{
				MetricType:  opts.MetricType,
				Environment: globalOptions.environment,
			}); err != nil {
				log.Ctx(ctx).Fatalf("error starting monitor service: %s", err.Error())
			}

			dbPoolConfig := db.DBPoolConfig{
				MaxOpenConns:    opts.DBPoolOptions.DBMaxOpenConns,
				MaxIdleConns:    opts.DBPoolOptions.DBMaxIdleConns,
				ConnMaxIdleTime: time.Duration(opts.DBPoolOptions.DBConnMaxIdleTimeSeconds) * time.Second,
				ConnMaxLifetime: time.Duration(opts.DBPoolOptions.DBConnMaxLifetimeSeconds) * time.Second,
			}
			dbConnectionPool, err := db.OpenDBConnectionPoolWithMetricsAndConfig(ctx, globalOptions.databaseURL, monitorService, dbPoolConfig)
			if err != nil {
				log.Ctx(ctx).Fatalf("error opening database connection pool: %s", err.Error())
			}

			models, err := data.NewModels(dbConnectionPool)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating models: %s", err.Error())
			}

			v := buildVerifier(opts, monitorService)

			txCoordinator := coordinator.New(models, clock.System{}, idgen.UUIDGenerator{}, v, coordinator.Config{
				CoinUnit:            decimal.NewFromFloat(opts.CoinUnit),
				FeeAmount:           decimal.NewFromFloat(opts.FeeAmount),
				AuthorizationWindow: time.Duration(opts.AuthorizationWindowSeconds) * time.Second,
				MaxAmount:           decimal.NewFromFloat(opts.MaxAmount),
				PayerBaseURL:        opts.PayerBaseURL,
			})
			txCoordinator.MonitorService = monitorService

			go serverService.StartMetricsServe(serve.MetricsServeOptions{
				Port:           opts.MetricsPort,
				Environment:    globalOptions.environment,
				MonitorService: monitorService,
				MetricType:     opts.MetricType,
			}, &serve.HTTPServer{})

			maxAge := time.Duration(opts.StuckLeaseMaxAgeSeconds) * time.Second
			go scheduler.StartScheduler(
				crashTrackerClient.Clone(),
				scheduler.WithExpiredTransactionSweepJobOption(models, monitorService),
				scheduler.WithStuckLeaseRevivalJobOption(models, maxAge, monitorService),
			)

			serverService.StartServe(serve.ServeOptions{
				Environment:        globalOptions.environment,
				GitCommit:          globalOptions.gitCommit,
				Port:               opts.Port,
				Version:            globalOptions.version,
				MonitorService:     monitorService,
				DBConnectionPool:   dbConnectionPool,
				Models:             models,
				Coordinator:        txCoordinator,
				JobQueue:           jobqueue.New(models, monitorService),
				CorsAllowedOrigins: opts.CorsAllowedOrigins,
				CrashTrackerClient: crashTrackerClient,
				AdminAccount:       opts.AdminAccount,
				AdminAPIKey:        opts.AdminAPIKey,
			}, &serve.HTTPServer{})
		},
	}

	if err := configOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}

func buildVerifier(opts serveCommandConfigOptions, monitorService monitor.MonitorServiceInterface) verifier.Verifier {
	if opts.StagingAlwaysAccept {
		log.Warn("using the staging always-accept verifier: every payment will be accepted without verification")
		return verifier.StagingAlwaysAcceptVerifier{}
	}
	httpVerifier := verifier.NewHTTPVerifier(opts.VerifierBaseURL, monitorService)
	httpVerifier.Timeout = time.Duration(opts.VerifierTimeoutSeconds) * time.Second
	return httpVerifier
}
