// Package server exposes the HTTP API: password and trusted-header
// authentication, the current-user endpoint polled by clients, health
// probes, and Prometheus metrics. Handlers return structured errors
// which the error middleware maps to JSON responses.
package server
