package notify

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/oshokin/usage-alarms/internal/domain/alarm"
	"github.com/oshokin/usage-alarms/internal/logger"
)

// Batch is what one tick hands to the notifiers.
type Batch struct {
	// ID identifies the batch across receivers.
	ID uuid.UUID
	// ServiceID is the monitored service.
	ServiceID string
	// Changed holds the alarms that switched state during the tick.
	Changed []alarm.State
	// Active holds every alarm that is ON after the tick.
	Active []alarm.State
}

// NewBatch creates a batch with a fresh ID.
func NewBatch(serviceID string, changed, active []alarm.State) Batch {
	return Batch{
		ID:        uuid.New(),
		ServiceID: serviceID,
		Changed:   changed,
		Active:    active,
	}
}

// Empty reports whether the batch carries no transitions.
func (b Batch) Empty() bool {
	return len(b.Changed) == 0
}

// Merged returns the changed alarms merged with the active ones, one entry
// per kind, sorted by kind. A transition wins over an active entry.
func (b Batch) Merged() []alarm.State {
	merged := make([]alarm.State, 0, len(b.Changed)+len(b.Active))
	merged = append(merged, b.Changed...)

	for _, state := range b.Active {
		if !slices.ContainsFunc(merged, func(s alarm.State) bool { return s.Kind == state.Kind }) {
			merged = append(merged, state)
		}
	}

	slices.SortFunc(merged, func(a, b alarm.State) int {
		return strings.Compare(string(a.Kind), string(b.Kind))
	})

	return merged
}

// Notifier delivers a batch to one receiver.
type Notifier interface {
	Notify(ctx context.Context, batch Batch) error
}

// Multi fans a batch out to several notifiers.
type Multi struct {
	notifiers []Notifier
}

// NewMulti creates a Multi. Nil notifiers are skipped.
func NewMulti(notifiers ...Notifier) *Multi {
	m := &Multi{notifiers: make([]Notifier, 0, len(notifiers))}

	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}

	return m
}

// Len returns the number of configured notifiers.
func (m *Multi) Len() int {
	if m == nil {
		return 0
	}

	return len(m.notifiers)
}

// Notify delivers the batch to every notifier. A failing notifier does not
// stop the others; all failures are returned joined. Empty batches are not
// delivered.
func (m *Multi) Notify(ctx context.Context, batch Batch) error {
	if m == nil || batch.Empty() {
		return nil
	}

	ctx = logger.WithKV(ctx, "batch_id", batch.ID.String())

	var errs []error

	for _, n := range m.notifiers {
		if err := n.Notify(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
