// Package alarm contains the core domain types of the usage alarm engine.
//
// It defines the closed set of alarm kinds, the immutable per-kind Config,
// and Payload, the mutable runtime state that advances one window sample at
// a time and reports edge-triggered ON/OFF transitions. Rate-based kinds
// average measurements over a period before striking a sample; the health
// check kind turns each probe result into a sample directly. Both feed the
// same bounded window and hysteresis decision.
package alarm
