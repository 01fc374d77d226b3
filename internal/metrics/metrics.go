package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/usage-alarms/internal/domain/alarm"
	"github.com/oshokin/usage-alarms/internal/logger"
)

const (
	metricPrefix = "usage_alarms_"

	resultSuccess = "success"
	resultError   = "error"

	stateOn  = "on"
	stateOff = "off"

	shutdownTimeout = 5 * time.Second
)

// Metrics holds the collectors of one engine. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ticks         *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec
	transitions   *prometheus.CounterVec
	alarmOn       *prometheus.GaugeVec
	notifications *prometheus.CounterVec
}

// New creates and registers the engine metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ticks_total",
				Help: "Total scheduler ticks by result",
			},
			[]string{"result"},
		),
		fetchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "fetch_latency_seconds",
				Help:    "Usage fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "transitions_total",
				Help: "Total alarm transitions by alarm and new state",
			},
			[]string{"alarm", "state"},
		),
		alarmOn: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "alarm_on",
				Help: "Whether an alarm is currently raised",
			},
			[]string{"alarm"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Total notification deliveries by result",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ticks,
		m.fetchLatency,
		m.transitions,
		m.alarmOn,
		m.notifications,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTick counts one tick; err is the fetch error, if any.
func (m *Metrics) ObserveTick(err error) {
	if m == nil {
		return
	}

	m.ticks.WithLabelValues(result(err)).Inc()
}

// ObserveFetch records how long a usage fetch took.
func (m *Metrics) ObserveFetch(elapsed time.Duration, err error) {
	if m == nil {
		return
	}

	m.fetchLatency.WithLabelValues(result(err)).Observe(elapsed.Seconds())
}

// ObserveTransition counts a transition and updates the alarm gauge.
func (m *Metrics) ObserveTransition(state alarm.State) {
	if m == nil {
		return
	}

	label := stateOff
	if state.On {
		label = stateOn
	}

	m.transitions.WithLabelValues(state.Kind.String(), label).Inc()
	m.SetAlarm(state)
}

// SetAlarm sets the current state gauge of an alarm.
func (m *Metrics) SetAlarm(state alarm.State) {
	if m == nil {
		return
	}

	value := 0.0
	if state.On {
		value = 1
	}

	m.alarmOn.WithLabelValues(state.Kind.String()).Set(value)
}

// ObserveNotify counts one batch delivery.
func (m *Metrics) ObserveNotify(err error) {
	if m == nil {
		return
	}

	m.notifications.WithLabelValues(result(err)).Inc()
}

// Serve exposes /metrics on address until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	logger.InfoKV(ctx, "Metrics endpoint listening", "listen_address", lis.Addr().String())

	if err = server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}

	return nil
}

func result(err error) string {
	if err != nil {
		return resultError
	}

	return resultSuccess
}
