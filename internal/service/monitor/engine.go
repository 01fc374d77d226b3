package monitor

import (
	"context"
	"slices"
	"time"

	"github.com/oshokin/usage-alarms/internal/domain/alarm"
	"github.com/oshokin/usage-alarms/internal/logger"
	"github.com/oshokin/usage-alarms/internal/metrics"
	"github.com/oshokin/usage-alarms/internal/notify"
)

// Fetcher returns the usage of the monitored service over [start, start+period).
type Fetcher interface {
	Usage(ctx context.Context, start time.Time, period time.Duration) (alarm.Usage, error)
}

// Prober reports whether a health check URL is reachable.
type Prober interface {
	Reachable(ctx context.Context, url string) bool
}

// Engine evaluates the alarms of one service tick by tick. It owns every
// payload; nothing outside the run loop touches them.
type Engine struct {
	serviceID string
	period    time.Duration
	payloads  map[alarm.Kind]*alarm.Payload
	// kinds lists the monitored kinds in evaluation order.
	kinds []alarm.Kind
	// changedAt records when each alarm last switched state.
	changedAt map[alarm.Kind]time.Time

	fetcher  Fetcher
	prober   Prober
	notifier notify.Notifier
	metrics  *metrics.Metrics
	board    *Board
	now      func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithProber sets the health check prober.
func WithProber(prober Prober) EngineOption {
	return func(e *Engine) {
		e.prober = prober
	}
}

// WithNotifier sets where transitions are delivered.
func WithNotifier(notifier notify.Notifier) EngineOption {
	return func(e *Engine) {
		e.notifier = notifier
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithBoard sets the board snapshots are published to.
func WithBoard(board *Board) EngineOption {
	return func(e *Engine) {
		e.board = board
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithPeriod overrides the tick period. Periods are whole minutes of at
// least one minute; anything else is rounded down to that.
func WithPeriod(period time.Duration) EngineOption {
	return func(e *Engine) {
		e.period = max(period.Truncate(time.Minute), time.Minute)
	}
}

// NewEngine creates an engine for the given alarms.
func NewEngine(serviceID string, alarms map[alarm.Kind]alarm.Config, fetcher Fetcher, opts ...EngineOption) *Engine {
	e := &Engine{
		serviceID: serviceID,
		period:    DefaultPeriod,
		payloads:  make(map[alarm.Kind]*alarm.Payload, len(alarms)),
		kinds:     make([]alarm.Kind, 0, len(alarms)),
		changedAt: make(map[alarm.Kind]time.Time, len(alarms)),
		fetcher:   fetcher,
		now:       time.Now,
	}

	for kind, cfg := range alarms {
		e.payloads[kind] = alarm.NewPayload(kind, cfg)
		e.kinds = append(e.kinds, kind)
	}

	slices.Sort(e.kinds)

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run drives ticks until ctx is cancelled. It returns nil on cancellation
// and an error only when the schedule itself cannot advance.
func (e *Engine) Run(ctx context.Context) error {
	anchor := initialTick(e.now(), e.period)

	logger.InfoKV(ctx, "Alarm engine started",
		"alarms", e.kinds,
		"period", e.period,
		"first_window", anchor.Format(time.RFC3339))

	for {
		changed, ok := e.Tick(ctx, anchor)
		if !ok {
			logger.Info(ctx, "Alarm engine stopped")

			return nil
		}

		e.emit(ctx, changed)

		next, err := nextTick(anchor, e.period)
		if err != nil {
			return err
		}

		anchor = next

		wait := sleepDuration(e.now(), anchor, e.period)
		if wait == 0 {
			logger.WarnKV(ctx, "Alarm engine is behind schedule", "window", anchor.Format(time.RFC3339))

			if ctx.Err() != nil {
				return nil
			}

			continue
		}

		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info(ctx, "Alarm engine stopped")

			return nil
		case <-timer.C:
		}
	}
}

// Tick runs one evaluation for the window starting at anchor and returns
// the alarms that switched state. It returns false when ctx was cancelled
// while waiting on the network; payloads fed before that keep their update.
func (e *Engine) Tick(ctx context.Context, anchor time.Time) ([]alarm.State, bool) {
	var changed []alarm.State

	minutes := uint16(e.period / time.Minute)

	for _, kind := range e.kinds {
		payload := e.payloads[kind]
		if kind.Measurement() != alarm.MeasurementProbe || !payload.ProbeDue(minutes) {
			continue
		}

		reachable, ok := e.probe(ctx, payload.Config().URL())
		if !ok {
			return nil, false
		}

		logger.DebugKV(ctx, "Health check probed", "alarm", kind, "reachable", reachable)

		changed = e.observe(ctx, payload, alarm.ProbeSample(reachable), changed)
	}

	fetched, ok := e.fetch(ctx, anchor)
	if !ok {
		return nil, false
	}

	e.metrics.ObserveTick(fetched.err)

	if fetched.err != nil {
		logger.ErrorKV(ctx, "Unable to fetch usage", "window", anchor.Format(time.RFC3339), "error", fetched.err)
	} else {
		for _, kind := range e.kinds {
			if kind.Measurement() != alarm.MeasurementRate {
				continue
			}

			sample := alarm.RateSample(kind.Measure(fetched.usage), minutes)
			changed = e.observe(ctx, e.payloads[kind], sample, changed)
		}
	}

	snapshot := e.snapshot(anchor)

	if active := snapshot.Active(); len(active) > 0 {
		logger.InfoKV(ctx, "Alarms on", "alarms", active)
	}

	if e.board != nil {
		e.board.Publish(snapshot)
	}

	return changed, true
}

// observe feeds one sample and appends the transition, if any, to changed.
func (e *Engine) observe(ctx context.Context, payload *alarm.Payload, sample alarm.Sample, changed []alarm.State) []alarm.State {
	state, switched, err := payload.Observe(sample)
	if err != nil {
		logger.WarnKV(ctx, "Alarm threshold is unusable, skipping", "alarm", payload.Kind(), "error", err)

		return changed
	}

	if !switched {
		return changed
	}

	e.changedAt[state.Kind] = e.now()

	logger.InfoKV(ctx, "Alarm switched", "alarm", state.Kind, "on", state.On)
	e.metrics.ObserveTransition(state)

	return append(changed, state)
}

// probe races a health check against cancellation.
func (e *Engine) probe(ctx context.Context, url string) (reachable, ok bool) {
	if e.prober == nil {
		return false, ctx.Err() == nil
	}

	result := make(chan bool, 1)

	go func() {
		result <- e.prober.Reachable(ctx, url)
	}()

	select {
	case <-ctx.Done():
		return false, false
	case reachable = <-result:
		return reachable, true
	}
}

type fetchResult struct {
	usage alarm.Usage
	err   error
}

// fetch races the usage fetch against cancellation. The fetch goroutine
// never blocks on an abandoned result.
func (e *Engine) fetch(ctx context.Context, anchor time.Time) (fetchResult, bool) {
	result := make(chan fetchResult, 1)
	started := e.now()

	go func() {
		usage, err := e.fetcher.Usage(ctx, anchor, e.period)
		result <- fetchResult{usage: usage, err: err}
	}()

	select {
	case <-ctx.Done():
		return fetchResult{}, false
	case r := <-result:
		e.metrics.ObserveFetch(e.now().Sub(started), r.err)

		return r, true
	}
}

// snapshot copies the state of every alarm.
func (e *Engine) snapshot(anchor time.Time) *alarm.Snapshot {
	snapshot := &alarm.Snapshot{
		ServiceID: e.serviceID,
		Anchor:    anchor,
		UpdatedAt: e.now(),
		Alarms:    make([]*alarm.Status, 0, len(e.kinds)),
	}

	for _, kind := range e.kinds {
		payload := e.payloads[kind]
		snapshot.Alarms = append(snapshot.Alarms, &alarm.Status{
			Kind:        kind,
			On:          payload.IsOn(),
			Window:      payload.Window(),
			BreachCount: payload.BreachCount(),
			Config:      payload.Config(),
			ChangedAt:   e.changedAt[kind],
		})
	}

	return snapshot
}

// emit hands the transitions of a tick and every active alarm to the
// notifier. Delivery failures are logged and never touch alarm state.
func (e *Engine) emit(ctx context.Context, changed []alarm.State) {
	if len(changed) == 0 {
		return
	}

	var active []alarm.State

	for _, kind := range e.kinds {
		if e.payloads[kind].IsOn() {
			active = append(active, e.payloads[kind].State())
		}
	}

	batch := notify.NewBatch(e.serviceID, changed, active)

	if e.notifier == nil {
		logger.DebugKV(ctx, "No notifier configured, dropping alarms", "alarms", changed)

		return
	}

	err := e.notifier.Notify(ctx, batch)
	e.metrics.ObserveNotify(err)

	if err != nil {
		logger.ErrorKV(ctx, "Unable to deliver alarms", "batch_id", batch.ID.String(), "alarms", changed, "error", err)
	}
}
