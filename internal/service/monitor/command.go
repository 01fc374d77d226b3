package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"google.golang.org/grpc"

	api "github.com/oshokin/usage-alarms/internal/api/grpc/status"
	"github.com/oshokin/usage-alarms/internal/config"
	"github.com/oshokin/usage-alarms/internal/domain/alarm"
	"github.com/oshokin/usage-alarms/internal/logger"
	"github.com/oshokin/usage-alarms/internal/metrics"
	"github.com/oshokin/usage-alarms/internal/notify"
	"github.com/oshokin/usage-alarms/internal/probe"
	"github.com/oshokin/usage-alarms/internal/railway"
)

// Options controls the alarm-monitor process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LogLevel overrides the configured log level when set.
	LogLevel string
}

// Run loads the configuration, starts the optional status and metrics
// endpoints and drives the alarm engine until ctx is cancelled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "alarm-monitor")

	settings, err := config.Load(ctx, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyLogLevel(ctx, settings.LogLevel, opts.LogLevel)

	ctx = logger.WithKV(ctx, "service_id", settings.ServiceID)

	alarms, err := settings.ResolveAlarms(ctx)
	if err != nil {
		return fmt.Errorf("resolve alarms: %w", err)
	}

	if len(alarms) == 0 {
		logger.WarnKV(ctx, "No alarms configured, only the schedule will run")
	}

	httpClient := &http.Client{Timeout: settings.Timeout}

	notifier, err := newNotifier(ctx, settings, httpClient)
	if err != nil {
		return fmt.Errorf("configure notifications: %w", err)
	}

	m := metrics.New()
	board := NewBoard(settings.ServiceID)

	engine := NewEngine(settings.ServiceID, alarms,
		&railwayUsage{
			client: railway.New(settings.RailwayAPIToken,
				railway.WithEndpoint(settings.RailwayAPIURL),
				railway.WithHTTPClient(httpClient)),
			projectID: settings.ProjectID,
			serviceID: settings.ServiceID,
		},
		WithProber(probe.New(probe.WithHTTPClient(httpClient))),
		WithNotifier(notifier),
		WithMetrics(m),
		WithBoard(board),
	)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var wg sync.WaitGroup

	if settings.MetricsAddress != "" {
		wg.Go(func() {
			if err := m.Serve(ctx, settings.MetricsAddress); err != nil {
				cancel(err)
			}
		})
	}

	if settings.StatusAddress != "" {
		wg.Go(func() {
			if err := serveStatus(ctx, settings.StatusAddress, board); err != nil {
				cancel(err)
			}
		})
	}

	runErr := engine.Run(ctx)

	cancel(nil)
	wg.Wait()

	if runErr != nil {
		return fmt.Errorf("run engine: %w", runErr)
	}

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}

	return nil
}

// applyLogLevel sets the global level from the flag, then the settings.
func applyLogLevel(ctx context.Context, configured, override string) {
	name := configured
	if override != "" {
		name = override
	}

	level, ok := logger.ParseLevel(name)
	if !ok {
		logger.WarnKV(ctx, "Unknown log level, using info", "log_level", name)
	}

	logger.SetLevel(level)
}

// newNotifier builds the notifiers enabled by the settings.
func newNotifier(ctx context.Context, settings *config.Config, httpClient *http.Client) (*notify.Multi, error) {
	var notifiers []notify.Notifier

	if settings.PagerDuty.Enabled() {
		pd, err := notify.NewPagerDuty(notify.PagerDutyConfig{
			BaseURL:    settings.PagerDuty.URL,
			Token:      settings.PagerDuty.Token,
			Source:     settings.PagerDuty.Source,
			RoutingKey: settings.PagerDuty.RoutingKey,
		}, httpClient)
		if err != nil {
			return nil, fmt.Errorf("pager duty: %w", err)
		}

		notifiers = append(notifiers, pd)
	}

	if settings.Webhook.URL != "" {
		webhook, err := notify.NewWebhook(settings.Webhook.URL, settings.AlarmToken, notify.WithHTTPClient(httpClient))
		if err != nil {
			return nil, fmt.Errorf("webhook: %w", err)
		}

		notifiers = append(notifiers, webhook)
	}

	if settings.Telegram.Enabled() {
		bot, err := notify.NewTelegramBot(settings.Telegram.Token, settings.Telegram.APIEndpoint, httpClient)
		if err != nil {
			return nil, err
		}

		telegram, err := notify.NewTelegram(bot, settings.Telegram.ChatID)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}

		logger.InfoKV(ctx, "Telegram bot authorized", "username", bot.Self.UserName)

		notifiers = append(notifiers, telegram)
	}

	multi := notify.NewMulti(notifiers...)
	if multi.Len() == 0 {
		logger.WarnKV(ctx, "No notification target configured, transitions will only be logged")
	}

	return multi, nil
}

// railwayUsage binds the Railway client to the monitored service.
type railwayUsage struct {
	client    *railway.Client
	projectID string
	serviceID string
}

func (r *railwayUsage) Usage(ctx context.Context, start time.Time, period time.Duration) (alarm.Usage, error) {
	return r.client.Usage(ctx, r.projectID, r.serviceID, start, period)
}

// serveStatus serves the status API on address until ctx is cancelled.
func serveStatus(ctx context.Context, address string, board *Board) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterStatusServer(grpcServer, api.NewServer(board))

	logger.InfoKV(ctx, "Status server listening", "listen_address", lis.Addr().String())

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "Status server stopped")

	return nil
}
