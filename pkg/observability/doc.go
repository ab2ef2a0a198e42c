/*
Package observability provides tools for monitoring the Stageflow engine.

It includes lifecycle hooks for auditing transitions through slog, Prometheus
counters fed by the same hooks, and opt-in OpenTelemetry trace export.
*/
package observability
