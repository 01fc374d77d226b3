// Package client implements the status command of alarm-monitor.
//
// The command connects to the status service of a running monitor and prints
// the latest alarm snapshot as JSON.
package client
