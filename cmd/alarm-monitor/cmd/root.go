package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/usage-alarms/internal/config"
	"github.com/oshokin/usage-alarms/internal/logger"
	"github.com/oshokin/usage-alarms/internal/service/monitor"
	"github.com/oshokin/usage-alarms/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command for running the alarm engine.
	rootCmd = &cobra.Command{
		Use:   "alarm-monitor",
		Short: "Watch the usage of a Railway service and raise alarms.",
		Long: `Runs the alarm engine for one Railway service.

Every minute the engine fetches the usage of the minute that just ended,
probes the health check when its period has elapsed and evaluates every
configured alarm. Alarms switch ON when enough samples in their window
breach the threshold and OFF when too few do. Transitions are sent to the
signed webhook and PagerDuty together with every alarm that is ON.

Settings come from the YAML file and the environment, the environment
winning. Interrupt the process to stop it.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			defer logger.Sync()

			return monitor.Run(ctx, &monitor.Options{
				ConfigPath: configPath,
				LogLevel:   logLevel,
			})
		},
	}
)

// Execute runs the alarm-monitor CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "minimum log level (debug, info, warn, error)")

	rootCmd.AddCommand(statusCmd)
}
