package main

import (
	"github.com/sirupsen/logrus"
	"github.com/stellar/go/support/log"

	"github.com/kioskpay/kiosk-coordinator-backend/cmd"
	cmdUtils "github.com/kioskpay/kiosk-coordinator-backend/cmd/utils"
)

// Version is the official version of this application.
const Version = "1.2.0"

// GitCommit is populated at build time by
// go build -ldflags "-X main.GitCommit=$GIT_COMMIT"
var GitCommit string

func main() {
	preConfigureLogger()

	if err := cmdUtils.LoadEnvFile(); err != nil {
		log.Warnf("error loading env file: %s", err.Error())
	}

	rootCmd := cmd.SetupCLI(Version, GitCommit)
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing root command: %s", err.Error())
	}
}

// preConfigureLogger sets the log level to Trace so logs work from the start.
// This is eventually overwritten by the --log-level flag in cmd/root.go.
func preConfigureLogger() {
	log.DefaultLogger = log.New()
	log.DefaultLogger.SetLevel(logrus.TraceLevel)
}
