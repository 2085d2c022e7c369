// Package logging provides a unified logging interface for optix components.
// It abstracts the underlying logging implementation, allowing consistent logging
// across the profiler, build driver and exporter while supporting multiple backends.
package logging
