// Package cli renders command results for the terminal: snapshots,
// optimization results, link plans, and profiling summaries, plus the
// spinner shown while a workload is being profiled.
package cli
