// Package notify delivers alarm transitions to external receivers.
//
// A Batch holds the transitions of one tick plus every alarm that is ON
// after it. The signed webhook sends both merged into one list so the
// receiver can combine alarms freely. PagerDuty receives one event per
// transition, deduplicated by service and alarm kind. Telegram gets one
// plain text message per batch.
package notify
