// Package probe checks whether a health check URL answers with 200 OK.
package probe
