// Package log provides structured trace logging for Ember mug sessions.
//
// This package defines the Logger interface and Event types for capturing
// traffic-level events (GATT reads and writes, scan results, session state
// changes). It is separate from operational logging (slog) - trace capture
// provides a complete machine-readable record of everything exchanged with
// a mug for debugging and analysis.
//
// # Basic Usage
//
// Applications configure tracing by providing a Logger implementation:
//
//	// For development: log to console via slog
//	transport.SetTrace(log.NewSlogAdapter(slog.Default()))
//
//	// For production: write to binary file
//	trace, _ := log.NewFileLogger("/var/log/embermug/session.emlog")
//	transport.SetTrace(trace)
//
//	// Both: use MultiLogger
//	transport.SetTrace(log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    trace,
//	))
//
// # Event Types
//
// Events are captured for every interaction with the adapter:
//   - GATT traffic: characteristic reads and writes with payload bytes (GattEvent)
//   - Scanning: advertisements seen during discovery (ScanEvent)
//   - Session lifecycle: state transitions (StateChangeEvent)
//
// Errors have a dedicated event type.
//
// # File Format
//
// Trace files use CBOR encoding with .emlog extension. The embermug-log CLI
// tool provides viewing, filtering, and export capabilities.
package log
