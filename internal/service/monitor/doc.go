// Package monitor runs the alarm engine of one service.
//
// Every tick covers one minute-aligned usage window. The engine probes the
// health check when its own period has elapsed, fetches the usage of the
// window, feeds every alarm and hands the transitions, together with the
// alarms that are ON, to the notifiers. Ticks are anchored: the next window
// always starts exactly one period after the previous one, so a slow tick
// shortens the following sleep instead of skipping a window.
package monitor
