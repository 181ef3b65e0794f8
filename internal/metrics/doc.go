// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Connection state and reconnect counters
//   - Relay message rates by kind (structured vs raw)
//   - Backlog depth
//   - Sink drop counts
package metrics
