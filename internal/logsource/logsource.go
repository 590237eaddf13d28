package logsource

import (
	"context"

	"github.com/tinytelemetry/rsvexclude/internal/model"
)

// LogSource is a unified interface for profile log inputs (file, stdin).
// Run drives the source and must be called exactly once, usually on its own
// goroutine next to the consumer draining Lines.
type LogSource interface {
	Run(ctx context.Context) error  // read until EOF, error or cancellation, then close Lines
	Lines() <-chan model.IngestLine // read-only channel of lines, in input order
	Err() error                     // read error, valid once Lines is closed
	Stop()                          // stop reading early
	Name() string                   // "file", "stdin"
}
