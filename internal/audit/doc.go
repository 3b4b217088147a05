// Package audit implements async event dispatching for security-relevant
// operations.
//
// # Components
//
//   - [Sink] is the interface for event consumers (channel, JSON lines, slog, no-op).
//   - [Dispatcher] is a buffered async relay that either drops or blocks when full.
//   - [Event] is the structured audit record.
//
// This package owns buffering and sink delivery. It does not decide which
// events to emit; that belongs to the Engine and the flows.
package audit
