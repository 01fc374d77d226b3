package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/protobuf/encoding/protojson"

	"github.com/oshokin/usage-alarms/internal/config"
	"github.com/oshokin/usage-alarms/internal/logger"
	"github.com/oshokin/usage-alarms/internal/service/common"
)

// Options configures the status query.
type Options struct {
	// Address overrides the status service address when specified.
	Address string
	// Timeout bounds the call; zero uses the default timeout.
	Timeout time.Duration
	// Out receives the JSON snapshot.
	Out io.Writer
}

// Run fetches the alarm snapshot of a running monitor and prints it.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-monitor-status")

	address := opts.Address
	if address == "" {
		address = config.StatusAddress(os.LookupEnv)
	}

	dialOptions := []common.Option{common.WithCallTimeout(opts.Timeout)}

	// Attribute the request when the local user can be identified.
	if actor, err := common.DetectActor(); err == nil {
		dialOptions = append(dialOptions, common.WithActor(actor))
	} else {
		logger.DebugKV(ctx, "Unable to detect local user", "error", err)
	}

	client, err := common.Dial(ctx, address, dialOptions...)
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Requesting alarm status", "address", address)

	snapshot, err := client.GetStatus(ctx)
	if err != nil {
		return err
	}

	body, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	if _, err = fmt.Fprintln(out, string(body)); err != nil {
		return fmt.Errorf("write status: %w", err)
	}

	return nil
}
