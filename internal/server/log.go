package server

import (
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds a structured zerolog.Logger, JSON in production, a
// console-pretty writer in development. Callers typically pass cfg.LogLevel
// and cfg.LogFormat straight through.
func NewLogger(level, format string) zerolog.Logger {
	var output io.Writer = os.Stdout

	zlevel, err := zerolog.ParseLevel(level)
	if err != nil {
		zlevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(zlevel)

	if format == "console" {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Str("service", "flightres-rpc").
		Logger()
}

// LogErrorWithStack logs err with a full stack trace, for panics recovered
// in the per-datagram dispatch goroutines.
func LogErrorWithStack(logger zerolog.Logger, err error, msg string, fields map[string]any) {
	event := logger.Error().Err(err).Str("stack_trace", string(debug.Stack()))
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}
