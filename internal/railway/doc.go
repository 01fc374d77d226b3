// Package railway is a small client for the Railway GraphQL API.
//
// It covers the three queries the alarm tooling needs: the usage of one
// service over a time range, the projects visible to a token and the
// services of a project.
package railway
