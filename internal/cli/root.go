package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/mathlan/internal/config"
)

// NewRootCmd creates the root command. Logs go to logWriter.
func NewRootCmd(logWriter io.Writer) *cobra.Command {
	e := &env{
		v:         config.New(),
		logWriter: logWriter,
	}

	rootCmd := &cobra.Command{
		Use:   "mathlan",
		Short: "Multiplication races on the local network",
		Long: `mathlan hosts and joins multiplication quiz rooms on a LAN.

Hosts announce themselves over UDP broadcast; players discover them, join
over a websocket and race through the same seeded questions.

Settings are layered: defaults, then the --config file, then MATHLAN_*
environment variables (MATHLAN_HOST_PORT, ...), then flags.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load(cmd)
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&e.configFile, "config", "", "Config file (YAML)")
	rootCmd.PersistentFlags().StringP("output", "o", "text", "Output format: text, json")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error (env: MATHLAN_LOG_LEVEL)")
	bindFlag(e.v, rootCmd.PersistentFlags(), "log.level", "log-level")

	// Add subcommands
	rootCmd.AddCommand(newHostCmd(e))
	rootCmd.AddCommand(newDiscoverCmd(e))
	rootCmd.AddCommand(newJoinCmd(e))
	rootCmd.AddCommand(newPracticeCmd(e))
	rootCmd.AddCommand(newEventsCmd(e))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd(os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
