package alarm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Minimum values accepted for the window sizing parameters.
const (
	MinPeriodMinutes     uint16 = 1
	MinDataPoints        uint16 = 1
	MinDataPointsToAlarm uint16 = 1
)

// ErrInvalidThreshold is returned when a configured value is not a number.
var ErrInvalidThreshold = errors.New("invalid alarm threshold")

// Config holds the immutable parameters of a single alarm.
type Config struct {
	// Value is the threshold as configured. For the health check kind it
	// holds the URL to probe instead of a number.
	Value string `yaml:"value"`
	// PeriodMinutes is how many minutes are accumulated per window sample.
	PeriodMinutes uint16 `yaml:"period_minutes"`
	// DataPoints is the size of the rolling window.
	DataPoints uint16 `yaml:"data_points"`
	// DataPointsToAlarm is how many breaching samples turn the alarm on.
	DataPointsToAlarm uint16 `yaml:"data_points_to_alarm"`
}

// Threshold parses Value as a number.
func (c Config) Threshold() (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidThreshold, c.Value, err)
	}

	return value, nil
}

// URL returns the probe address of a health check alarm.
func (c Config) URL() string {
	return strings.TrimSpace(c.Value)
}

// dataPoints returns the window capacity, never less than one.
func (c Config) dataPoints() int {
	return int(max(c.DataPoints, MinDataPoints))
}

// periodMinutes returns the sample period, never less than one.
func (c Config) periodMinutes() uint16 {
	return max(c.PeriodMinutes, MinPeriodMinutes)
}
