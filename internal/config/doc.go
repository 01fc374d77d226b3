// Package config loads the settings of the alarm monitor and the listing
// proxy.
//
// Monitor settings come from an optional YAML file with environment
// variables layered on top. Alarm thresholds and window sizes can be set
// globally (PERIOD_MINUTES, DATA_POINTS, DATA_POINTS_TO_ALARM) and per
// alarm kind (<KIND>, <KIND>_PERIOD_MINUTES, ...).
package config
