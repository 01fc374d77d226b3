package alarm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind identifies one monitored signal. The string form is also the name of
// the environment variable holding the kind's threshold.
type Kind string

// Known alarm kinds, sorted by name.
const (
	CostUpperLimit      Kind = "COST_UPPER_LIMIT"
	CPULowerLimitVCPUs  Kind = "CPU_LOWER_LIMIT_VCPUS"
	CPUUpperLimitVCPUs  Kind = "CPU_UPPER_LIMIT_VCPUS"
	DiskLowerLimitGB    Kind = "DISK_LOWER_LIMIT_GB"
	DiskUpperLimitGB    Kind = "DISK_UPPER_LIMIT_GB"
	EgressLowerLimitGB  Kind = "EGRESS_LOWER_LIMIT_GB"
	EgressUpperLimitGB  Kind = "EGRESS_UPPER_LIMIT_GB"
	HealthCheckFailed   Kind = "HEALTH_CHECK_FAILED"
	IngressLowerLimitGB Kind = "INGRESS_LOWER_LIMIT_GB"
	IngressUpperLimitGB Kind = "INGRESS_UPPER_LIMIT_GB"
	MemoryLowerLimitGB  Kind = "MEMORY_LOWER_LIMIT_GB"
	MemoryUpperLimitGB  Kind = "MEMORY_UPPER_LIMIT_GB"
)

// Direction is the comparison applied to a rate-based kind's average.
type Direction uint8

const (
	// DirectionNone is used by kinds that are not compared against a number.
	DirectionNone Direction = iota
	// DirectionBelow alarms when the average falls below the threshold.
	DirectionBelow
	// DirectionAbove alarms when the average exceeds the threshold.
	DirectionAbove
)

// Measurement tells how a kind obtains its window samples.
type Measurement uint8

const (
	// MeasurementNone marks kinds without a measurement source.
	MeasurementNone Measurement = iota
	// MeasurementRate accumulates usage values over a period and averages them.
	MeasurementRate
	// MeasurementProbe turns every health probe into one sample.
	MeasurementProbe
)

// ErrUnknownKind is returned when parsing an unrecognised kind name.
var ErrUnknownKind = errors.New("unknown alarm kind")

// Usage holds one usage reading of the monitored service for [Start, End).
type Usage struct {
	CPU       float64
	MemoryGB  float64
	DiskGB    float64
	IngressGB float64
	EgressGB  float64
	Start     time.Time
	End       time.Time
}

// kindSpec describes how a kind is measured.
type kindSpec struct {
	measurement Measurement
	direction   Direction
	value       func(Usage) float64
}

//nolint:gochecknoglobals // Static lookup table for a closed set of kinds.
var kindSpecs = map[Kind]kindSpec{
	CostUpperLimit:      {measurement: MeasurementNone, direction: DirectionAbove},
	CPULowerLimitVCPUs:  {MeasurementRate, DirectionBelow, func(u Usage) float64 { return u.CPU }},
	CPUUpperLimitVCPUs:  {MeasurementRate, DirectionAbove, func(u Usage) float64 { return u.CPU }},
	DiskLowerLimitGB:    {MeasurementRate, DirectionBelow, func(u Usage) float64 { return u.DiskGB }},
	DiskUpperLimitGB:    {MeasurementRate, DirectionAbove, func(u Usage) float64 { return u.DiskGB }},
	EgressLowerLimitGB:  {MeasurementRate, DirectionBelow, func(u Usage) float64 { return u.EgressGB }},
	EgressUpperLimitGB:  {MeasurementRate, DirectionAbove, func(u Usage) float64 { return u.EgressGB }},
	HealthCheckFailed:   {measurement: MeasurementProbe, direction: DirectionNone},
	IngressLowerLimitGB: {MeasurementRate, DirectionBelow, func(u Usage) float64 { return u.IngressGB }},
	IngressUpperLimitGB: {MeasurementRate, DirectionAbove, func(u Usage) float64 { return u.IngressGB }},
	MemoryLowerLimitGB:  {MeasurementRate, DirectionBelow, func(u Usage) float64 { return u.MemoryGB }},
	MemoryUpperLimitGB:  {MeasurementRate, DirectionAbove, func(u Usage) float64 { return u.MemoryGB }},
}

// Kinds returns every known kind sorted by name.
func Kinds() []Kind {
	return []Kind{
		CostUpperLimit,
		CPULowerLimitVCPUs,
		CPUUpperLimitVCPUs,
		DiskLowerLimitGB,
		DiskUpperLimitGB,
		EgressLowerLimitGB,
		EgressUpperLimitGB,
		HealthCheckFailed,
		IngressLowerLimitGB,
		IngressUpperLimitGB,
		MemoryLowerLimitGB,
		MemoryUpperLimitGB,
	}
}

// ParseKind converts a kind name (case-insensitive) into a Kind.
func ParseKind(s string) (Kind, error) {
	kind := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := kindSpecs[kind]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}

	return kind, nil
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	return string(k)
}

// Measurement returns how the kind obtains samples.
func (k Kind) Measurement() Measurement {
	return kindSpecs[k].measurement
}

// Direction returns the comparison used for rate-based kinds.
func (k Kind) Direction() Direction {
	return kindSpecs[k].direction
}

// Measure extracts the kind's raw value from a usage reading.
// Kinds without a rate measurement report zero.
func (k Kind) Measure(u Usage) float64 {
	spec := kindSpecs[k]
	if spec.value == nil {
		return 0
	}

	return spec.value(u)
}
