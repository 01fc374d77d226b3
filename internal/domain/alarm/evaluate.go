package alarm

// accumulate adds a rate value to the running sum. Once the configured
// period has elapsed it strikes a window sample and reports whether the
// period's average breached the threshold. A zero threshold disables the
// alarm: nothing is accumulated.
func (p *Payload) accumulate(value float64, minutes uint16) (breach, struck bool, err error) {
	threshold, err := p.config.Threshold()
	if err != nil {
		return false, false, err
	}

	if threshold == 0 {
		return false, false, nil
	}

	p.accumulated += value
	p.elapsedMinutes += minutes

	period := p.config.periodMinutes()
	if p.elapsedMinutes < period {
		return false, false, nil
	}

	average := p.accumulated / float64(p.elapsedMinutes)
	averageThreshold := threshold / float64(period)

	switch p.kind.Direction() {
	case DirectionBelow:
		breach = average < averageThreshold
	case DirectionAbove:
		breach = average > averageThreshold
	case DirectionNone:
	}

	p.accumulated = 0
	p.elapsedMinutes = 0

	return breach, true, nil
}

// push appends a window sample, evicting the oldest one past capacity, and
// applies the hysteresis rule. It reports whether isOn flipped.
func (p *Payload) push(breach bool) bool {
	if len(p.window) >= p.config.dataPoints() {
		copy(p.window, p.window[1:])
		p.window = p.window[:len(p.window)-1]
	}

	p.window = append(p.window, breach)

	alarming := p.BreachCount() >= int(p.config.DataPointsToAlarm)

	switch {
	case alarming && !p.isOn:
		p.isOn = true

		return true
	case !alarming && p.isOn:
		p.isOn = false

		return true
	default:
		return false
	}
}
