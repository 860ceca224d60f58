package utils

import "github.com/spf13/cobra"

// DefaultPersistentPreRun chains up to the parent command's PersistentPreRun, so every
// subcommand inherits the root command's env loading and logger setup.
var DefaultPersistentPreRun = func(cmd *cobra.Command, args []string) {
	if cmd.Parent().PersistentPreRun != nil {
		cmd.Parent().PersistentPreRun(cmd.Parent(), args)
	}
}
