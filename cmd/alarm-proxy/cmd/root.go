package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/usage-alarms/internal/logger"
	"github.com/oshokin/usage-alarms/internal/service/proxy"
	"github.com/oshokin/usage-alarms/internal/version"
)

var (
	// logLevel sets the minimum log level.
	logLevel string

	// rootCmd represents the base command for running the listing proxy.
	rootCmd = &cobra.Command{
		Use:   "alarm-proxy [listen-address]",
		Short: "Serve Railway project and service listings to the alarm frontend.",
		Long: `Starts an HTTP server exposing POST /v1/projects and POST /v1/services.

Requests must carry the caller's Railway token as a bearer token; it is
forwarded to the Railway API as is. Only FRONTEND_URL is allowed by CORS.
The server listens on PORT (4000 by default) unless a listen address is
given as argument (e.g., :8080, 127.0.0.1:4000).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			defer logger.Sync()

			if level, ok := logger.ParseLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			// Use listen address argument if provided, otherwise rely on PORT.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return proxy.Run(ctx, &proxy.Options{ListenAddress: listenAddress})
		},
	}
)

// Execute runs the alarm-proxy CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "minimum log level (debug, info, warn, error)")
}
