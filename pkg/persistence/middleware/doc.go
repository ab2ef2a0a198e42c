// Package middleware decorates ports.StateStore implementations with
// cross-cutting behavior such as metrics and tracing.
package middleware
