// Package http is the REST facade of the server.
//
// It translates workspace and code generation requests into calls on the
// workspace manager and the configured generator, serves the health page
// and exposes Prometheus metrics. Every failure is rendered as
// {"error": "..."} with a status chosen in one place (errors.go).
package http
