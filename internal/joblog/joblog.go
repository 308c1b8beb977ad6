// Package joblog wraps zerolog for the job system's lifecycle logging:
// worker start/park/quit and pool exhaustion warnings. It is never called
// from the execute/finish/push/pop/steal hot path.
package joblog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger, mirroring the shape a caller configuring a
// job system would expect from the rest of the stack's logging package.
type Logger struct {
	zerolog.Logger
}

// Config configures a Logger.
type Config struct {
	Level  string // "debug", "info", "warn", "error"; default "info"
	Output io.Writer
}

// New creates a Logger. A zero Config produces an info-level logger writing
// to stdout.
func New(cfg Config) *Logger {
	var level zerolog.Level
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	case "disabled":
		level = zerolog.Disabled
	default:
		level = zerolog.InfoLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &Logger{Logger: logger}
}

// Noop returns a Logger that discards everything, for callers that did not
// configure one explicitly.
func Noop() *Logger {
	return &Logger{Logger: zerolog.New(io.Discard)}
}

// WithComponent returns a child logger tagged with a "component" field.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With().Str("component", component).Logger()}
}

// WithWorker returns a child logger tagged with a "worker" field.
func (l *Logger) WithWorker(threadID int) *Logger {
	return &Logger{Logger: l.Logger.With().Int("worker", threadID).Timestamp().Logger()}
}
