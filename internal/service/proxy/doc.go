// Package proxy serves the project and service listings a frontend needs to
// configure alarms, forwarding the caller's Railway token.
package proxy
