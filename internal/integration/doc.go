// Package integration exercises the alarm monitor end to end against fake
// Railway, webhook and PagerDuty endpoints.
package integration
