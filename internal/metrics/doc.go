// Package metrics exposes Prometheus metrics of the alarm engine.
package metrics
