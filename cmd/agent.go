package cmd

import (
	"go/types"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/stellar/go/support/config"
	"github.com/stellar/go/support/log"

	cmdUtils "github.com/kioskpay/kiosk-coordinator-backend/cmd/utils"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/agent"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/agent/kioskid"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/hardware"
	"github.com/kioskpay/kiosk-coordinator-backend/internal/utils"
)

// AgentCommand starts the dispenser-node agent: it runs on the kiosk's hardware controller,
// polls the coordinator for its own pending job and drives the coin hopper.
type AgentCommand struct{}

type agentCommandConfigOptions struct {
	CoordinatorBaseURL string
	KioskIDFilePath    string
	SerialPort         string
}

func (c *AgentCommand) Command() *cobra.Command {
	opts := agentCommandConfigOptions{}

	configOpts := config.ConfigOptions{
		{
			Name:        "coordinator-base-url",
			Usage:       "Base URL of the coordinator HTTP API this agent polls",
			OptType:     types.String,
			ConfigKey:   &opts.CoordinatorBaseURL,
			FlagDefault: "http://localhost:8000",
			Required:    true,
		},
		{
			Name:        "kiosk-id-file",
			Usage:       "Path to the file holding this kiosk's persisted identity",
			OptType:     types.String,
			ConfigKey:   &opts.KioskIDFilePath,
			FlagDefault: "/var/lib/kiosk-agent/kiosk-id",
			Required:    true,
		},
		{
			Name:        "serial-port",
			Usage:       "Serial device the coin hopper is attached to",
			OptType:     types.String,
			ConfigKey:   &opts.SerialPort,
			FlagDefault: "/dev/ttyUSB0",
			Required:    true,
		},
	}

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Runs the dispenser-node agent that drives the coin hopper",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmdUtils.DefaultPersistentPreRun(cmd, args)
			configOpts.Require()
			if err := configOpts.SetValues(); err != nil {
				log.Ctx(cmd.Context()).Fatalf("Error setting values of config options: %s", err.Error())
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()

			if err := utils.ValidateURLScheme(opts.CoordinatorBaseURL, "http", "https"); err != nil {
				log.Ctx(ctx).Fatalf("invalid --coordinator-base-url: %s", err.Error())
			}
			if err := utils.ValidatePathIsNotTraversal(opts.KioskIDFilePath); err != nil {
				log.Ctx(ctx).Fatalf("invalid --kiosk-id-file: %s", err.Error())
			}

			kioskID, err := kioskid.LoadOrCreate(opts.KioskIDFilePath)
			if err != nil {
				log.Ctx(ctx).Fatalf("error loading kiosk id: %s", err.Error())
			}
			log.Ctx(ctx).Infof("running as kiosk %s", kioskID)

			client := agent.NewCoordinatorClient(opts.CoordinatorBaseURL, kioskID)
			driver := hardware.NewSerialDriver(opts.SerialPort)

			dispenseAgent := agent.New(kioskID, client, driver)

			runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			dispenseAgent.Run(runCtx)
		},
	}

	if err := configOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}
