// Package observability provides the structured logger, Prometheus metrics
// and run identifiers used by a harvest run.
//
// Logs go to stderr so stdout stays free for command output. Metrics live
// in a private registry and are written to a textfile at the end of a run
// for node_exporter's textfile collector, or simply for inspection.
package observability
