package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/usage-alarms/internal/config"
	"github.com/oshokin/usage-alarms/internal/service/client"
)

var (
	// statusTimeout bounds the status call.
	statusTimeout time.Duration

	// statusCmd prints the alarm snapshot of a running monitor.
	statusCmd = &cobra.Command{
		Use:   "status [address]",
		Short: "Print the alarm status of a running monitor.",
		Long: `Connects to the status service of a running alarm-monitor and prints
the state of every alarm after the last tick as JSON.

The address can be provided as argument, otherwise STATUS_ADDR or ` + config.DefaultStatusAddress + ` is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use address argument if provided, otherwise rely on the environment.
			var address string
			if len(args) > 0 {
				address = args[0]
			}

			return client.Run(ctx, &client.Options{
				Address: address,
				Timeout: statusTimeout,
				Out:     cmd.OutOrStdout(),
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	statusCmd.Flags().DurationVarP(&statusTimeout, "timeout", "t", config.DefaultTimeout, "status call timeout")
}
