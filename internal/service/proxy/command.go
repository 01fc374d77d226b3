package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/oshokin/usage-alarms/internal/config"
	"github.com/oshokin/usage-alarms/internal/logger"
	"github.com/oshokin/usage-alarms/internal/railway"
)

// Options controls the alarm-proxy process.
type Options struct {
	// ListenAddress overrides the address built from PORT when set.
	ListenAddress string
}

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Run serves the listing endpoints until ctx is cancelled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "alarm-proxy")

	cfg, err := config.LoadProxy()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	listenAddress := opts.ListenAddress
	if listenAddress == "" {
		listenAddress = net.JoinHostPort("0.0.0.0", strconv.Itoa(int(cfg.Port)))
	}

	httpClient := &http.Client{Timeout: config.DefaultTimeout}

	handler := NewHandler(ctx, cfg, func(token string) Lister {
		return railway.New(token, railway.WithEndpoint(cfg.RailwayAPIURL), railway.WithHTTPClient(httpClient))
	})

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.InfoKV(ctx, "Listing proxy listening", "listen_address", lis.Addr().String(), "frontend_url", cfg.FrontendURL)

	// Done channel is closed after Shutdown finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down listing proxy")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)

		close(done)
	}()

	if err = server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done
	logger.Info(ctx, "Listing proxy stopped")

	return nil
}
