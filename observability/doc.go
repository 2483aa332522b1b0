// Package observability provides an OpenTelemetry-based metrics
// extension for Concierge. The MetricsExtension implements lifecycle
// hooks to record system-wide counters for instance starts, step
// outcomes, completions, pauses, resumes, and cancels.
//
// For per-step tracing and timing, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
