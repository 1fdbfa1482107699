// Package metric provides Prometheus metrics for tuamail.
//
//   - prometheus.go: registry, metric families and the /metrics handler
//
// Metrics include mail and chat throughput, the reminder lifecycle
// (scheduled, fired, stale callbacks), snapshot saves and restores, and
// HTTP request counts and latencies. All recording methods are safe on a nil
// *Registry so components can run without metrics in tests.
package metric
