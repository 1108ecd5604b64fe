// Package logging provides concrete implementations of the sparkload.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: writes prefixed lines to an io.Writer, styled on terminals
//   - NullLogger: discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
