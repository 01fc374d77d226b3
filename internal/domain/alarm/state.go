package alarm

import (
	"slices"
	"time"
)

// State is the ON/OFF status of one alarm. A State produced by the
// evaluator is a transition: the alarm has just switched to On.
type State struct {
	// Kind is the alarm the state belongs to.
	Kind Kind `json:"alarm"`
	// On reports whether the alarm is currently raised.
	On bool `json:"on"`
}

// Status is a point-in-time copy of an alarm's runtime state, handed to
// components outside the run loop.
type Status struct {
	// Kind is the alarm the status belongs to.
	Kind Kind
	// On reports whether the alarm is raised.
	On bool
	// Window holds the breach flags of the retained samples, oldest first.
	Window []bool
	// BreachCount is the number of breaching samples in Window.
	BreachCount int
	// Config is the alarm configuration.
	Config Config
	// ChangedAt is when the alarm last switched state; zero if never.
	ChangedAt time.Time
}

// Clone returns a copy that shares no memory with the receiver.
func (s *Status) Clone() *Status {
	if s == nil {
		return nil
	}

	cloned := *s
	cloned.Window = slices.Clone(s.Window)

	return &cloned
}

// Snapshot is the state of every monitored alarm after one tick.
type Snapshot struct {
	// ServiceID is the monitored service.
	ServiceID string
	// Anchor is the start of the usage window of the tick.
	Anchor time.Time
	// UpdatedAt is when the tick finished; zero before the first tick.
	UpdatedAt time.Time
	// Alarms holds one status per monitored alarm, sorted by kind.
	Alarms []*Status
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	cloned := *s
	cloned.Alarms = make([]*Status, 0, len(s.Alarms))

	for _, status := range s.Alarms {
		cloned.Alarms = append(cloned.Alarms, status.Clone())
	}

	return &cloned
}

// Active returns the states of the alarms that are ON.
func (s *Snapshot) Active() []State {
	var active []State

	for _, status := range s.Alarms {
		if status.On {
			active = append(active, State{Kind: status.Kind, On: true})
		}
	}

	return active
}
