// Package observability provides structured logging and metrics
// for the persona relay.
//
// This package implements:
//   - Structured logging with contextual fields (zap-based)
//   - Prometheus metrics for provider attempts and emergency replies
//   - Request ID propagation into log lines
package observability
