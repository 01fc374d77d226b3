// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client for the status service with call
// timeouts, and detects the local user so requests can be attributed.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
