// Package api serves the status endpoints of a running analysis: liveness,
// readiness, Prometheus metrics and the recorded run summaries.
package api
