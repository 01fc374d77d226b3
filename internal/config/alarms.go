package config

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/oshokin/usage-alarms/internal/domain/alarm"
	"github.com/oshokin/usage-alarms/internal/logger"
)

// Built-in window defaults used when neither the file nor the environment
// provides one.
const (
	DefaultPeriodMinutes     uint16 = 1
	DefaultDataPoints        uint16 = 5
	DefaultDataPointsToAlarm uint16 = 3
)

// Per-kind environment variable suffixes.
const (
	suffixPeriodMinutes     = "_PERIOD_MINUTES"
	suffixDataPoints        = "_DATA_POINTS"
	suffixDataPointsToAlarm = "_DATA_POINTS_TO_ALARM"
)

// applyAlarmEnv reads <KIND> and <KIND>_* variables for every known kind.
func (c *Config) applyAlarmEnv(lookup LookupFunc) error {
	// File keys are matched case-insensitively against environment names.
	if len(c.Alarms) > 0 {
		normalized := make(map[string]AlarmSettings, len(c.Alarms))
		for name, settings := range c.Alarms {
			normalized[strings.ToUpper(strings.TrimSpace(name))] = settings
		}

		c.Alarms = normalized
	}

	for _, kind := range alarm.Kinds() {
		name := kind.String()
		settings := c.Alarms[name]
		touched := false

		if value, ok := lookup(name); ok {
			settings.Value = value
			touched = true
		}

		before := settings.Window
		if err := settings.Window.applyEnv(lookup, name+"_"); err != nil {
			return err
		}

		if touched || settings.Window != before {
			if c.Alarms == nil {
				c.Alarms = make(map[string]AlarmSettings, len(alarm.Kinds()))
			}

			c.Alarms[name] = settings
		}
	}

	return nil
}

// ResolveAlarms builds the configuration of every enabled alarm. Alarms
// with an empty or zero value are not monitored. Window settings below
// their minimum are raised to it with a warning. Unparseable thresholds,
// invalid probe URLs and unknown kind names are fatal.
func (c *Config) ResolveAlarms(ctx context.Context) (map[alarm.Kind]alarm.Config, error) {
	result := make(map[alarm.Kind]alarm.Config, len(c.Alarms))

	for name, settings := range c.Alarms {
		kind, err := alarm.ParseKind(name)
		if err != nil {
			return nil, err
		}

		if settings.Value == "" {
			continue
		}

		enabled, err := validateValue(kind, settings.Value)
		if err != nil {
			return nil, err
		}

		if !enabled {
			continue
		}

		if kind.Measurement() == alarm.MeasurementNone {
			logger.WarnKV(ctx, "Alarm has no measurement source and will not be evaluated", "alarm", kind)

			continue
		}

		cfg := alarm.Config{
			Value: settings.Value,
			PeriodMinutes: resolveWindowValue(ctx, kind.String()+suffixPeriodMinutes,
				settings.PeriodMinutes, c.Defaults.PeriodMinutes, DefaultPeriodMinutes, alarm.MinPeriodMinutes),
			DataPoints: resolveWindowValue(ctx, kind.String()+suffixDataPoints,
				settings.DataPoints, c.Defaults.DataPoints, DefaultDataPoints, alarm.MinDataPoints),
			DataPointsToAlarm: resolveWindowValue(ctx, kind.String()+suffixDataPointsToAlarm,
				settings.DataPointsToAlarm, c.Defaults.DataPointsToAlarm, DefaultDataPointsToAlarm, alarm.MinDataPointsToAlarm),
		}

		if cfg.DataPointsToAlarm > cfg.DataPoints {
			logger.WarnKV(ctx, "Data points to alarm can't exceed data points, clipping",
				"alarm", kind,
				"data_points", cfg.DataPoints,
				"data_points_to_alarm", cfg.DataPointsToAlarm)

			cfg.DataPointsToAlarm = cfg.DataPoints
		}

		result[kind] = cfg
	}

	return result, nil
}

// validateValue checks the configured value of a kind and reports whether
// it enables the alarm.
func validateValue(kind alarm.Kind, value string) (bool, error) {
	cfg := alarm.Config{Value: value}

	if kind.Measurement() == alarm.MeasurementProbe {
		if cfg.URL() == "" {
			return false, nil
		}

		if _, err := url.ParseRequestURI(cfg.URL()); err != nil {
			return false, fmt.Errorf("%w %s: %w", ErrInvalidSetting, kind, err)
		}

		return true, nil
	}

	threshold, err := cfg.Threshold()
	if err != nil {
		return false, fmt.Errorf("%w %s: %w", ErrInvalidSetting, kind, err)
	}

	return threshold != 0, nil
}

// resolveWindowValue picks the per-alarm value, then the configured
// default, then the built-in default, and raises it to minimum if needed.
func resolveWindowValue(ctx context.Context, name string, own, configured *uint16, builtin, minimum uint16) uint16 {
	value := builtin

	switch {
	case own != nil:
		value = *own
	case configured != nil:
		value = *configured
	}

	if value < minimum {
		logger.WarnKV(ctx, "Setting below minimum, clipping", "setting", name, "value", value, "minimum", minimum)

		value = minimum
	}

	return value
}
