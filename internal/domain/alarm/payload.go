package alarm

import (
	"errors"
	"fmt"
	"slices"
)

// ErrMeasurementMismatch is returned when a sample does not match the
// measurement protocol of the alarm it is fed to.
var ErrMeasurementMismatch = errors.New("sample does not match alarm measurement")

// Sample is one measurement fed to Payload.Observe. Build it with
// RateSample or ProbeSample.
type Sample struct {
	measurement Measurement
	value       float64
	minutes     uint16
	reachable   bool
}

// RateSample carries a usage value covering the given number of minutes.
func RateSample(value float64, minutes uint16) Sample {
	return Sample{
		measurement: MeasurementRate,
		value:       value,
		minutes:     minutes,
	}
}

// ProbeSample carries the outcome of one health probe.
func ProbeSample(reachable bool) Sample {
	return Sample{
		measurement: MeasurementProbe,
		reachable:   reachable,
	}
}

// Payload is the mutable runtime state of one alarm. It is not safe for
// concurrent use; the run loop owns every payload exclusively.
type Payload struct {
	kind   Kind
	config Config

	// accumulated is the sum of rate values since the last window sample.
	accumulated float64
	// elapsedMinutes counts minutes since the last window sample or probe.
	elapsedMinutes uint16
	// window holds breach flags, oldest first, at most config.DataPoints long.
	window []bool
	// isOn is the current alarm state.
	isOn bool
}

// NewPayload creates an idle payload for the given alarm.
func NewPayload(kind Kind, config Config) *Payload {
	return &Payload{
		kind:   kind,
		config: config,
		window: make([]bool, 0, config.dataPoints()),
	}
}

// Kind returns the alarm kind.
func (p *Payload) Kind() Kind { return p.kind }

// Config returns the alarm configuration.
func (p *Payload) Config() Config { return p.config }

// Accumulated returns the running sum since the last window sample.
func (p *Payload) Accumulated() float64 { return p.accumulated }

// ElapsedMinutes returns the minutes counted since the last window sample.
func (p *Payload) ElapsedMinutes() uint16 { return p.elapsedMinutes }

// Window returns a copy of the breach flags, oldest first.
func (p *Payload) Window() []bool { return slices.Clone(p.window) }

// IsOn reports whether the alarm is raised.
func (p *Payload) IsOn() bool { return p.isOn }

// BreachCount returns the number of breaching samples in the window.
func (p *Payload) BreachCount() int {
	count := 0

	for _, breach := range p.window {
		if breach {
			count++
		}
	}

	return count
}

// State returns the current state of the alarm.
func (p *Payload) State() State {
	return State{Kind: p.kind, On: p.isOn}
}

// Enabled reports whether the alarm has a usable non-zero threshold.
// For the health check kind the threshold is the probe URL.
func (p *Payload) Enabled() bool {
	if p.kind.Measurement() == MeasurementProbe {
		return p.config.URL() != ""
	}

	threshold, err := p.config.Threshold()

	return err == nil && threshold != 0
}

// ProbeDue advances the probe cadence by minutes and reports whether the
// probe period has elapsed. The counter restarts once it is due.
func (p *Payload) ProbeDue(minutes uint16) bool {
	if p.kind.Measurement() != MeasurementProbe || !p.Enabled() {
		return false
	}

	p.elapsedMinutes += minutes
	if p.elapsedMinutes < p.config.periodMinutes() {
		return false
	}

	p.elapsedMinutes = 0

	return true
}

// Observe feeds one sample into the alarm. It returns the new state and true
// when the alarm switched ON or OFF as a result. A threshold that cannot be
// parsed leaves the payload untouched and is reported as an error; the alarm
// then behaves as disabled.
func (p *Payload) Observe(sample Sample) (State, bool, error) {
	if sample.measurement != p.kind.Measurement() {
		return State{}, false, fmt.Errorf("%w: %s", ErrMeasurementMismatch, p.kind)
	}

	var breach bool

	switch sample.measurement {
	case MeasurementRate:
		var (
			struck bool
			err    error
		)

		breach, struck, err = p.accumulate(sample.value, sample.minutes)
		if err != nil || !struck {
			return State{}, false, err
		}
	case MeasurementProbe:
		breach = !sample.reachable
	default:
		return State{}, false, nil
	}

	changed := p.push(breach)

	return p.State(), changed, nil
}
