/*
Package logx provides the structured logging setup based on zerolog.

It initializes the global logger once at startup, picking a human-readable
console writer in development and plain JSON in production, and exposes small
level helpers for call sites that do not carry their own derived logger.
*/
package logx

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitGlobalLogger configures the process-wide zerolog instance.
// Development gets Debug level with a colored console writer; production gets
// Info level JSON. All entries carry a Unix timestamp and caller info.
func InitGlobalLogger(isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if isDevelopment {
		logger = logger.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	log.Logger = logger.With().Caller().Logger()
}

// Logger returns the global zerolog.Logger. Components derive their own
// contextual loggers from it with With().
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Info logs msg at Info level with optional key-value fields.
func Info(msg string, fields ...any) {
	Logger().Info().Fields(normalize(fields)).CallerSkipFrame(1).Msg(msg)
}

// Warn logs msg at Warn level with optional key-value fields.
func Warn(msg string, fields ...any) {
	Logger().Warn().Fields(normalize(fields)).CallerSkipFrame(1).Msg(msg)
}

// Error logs err and msg at Error level with optional key-value fields.
func Error(err error, msg string, fields ...any) {
	Logger().Error().Err(err).Fields(normalize(fields)).CallerSkipFrame(1).Msg(msg)
}

// Fatal logs err and msg at Fatal level, then exits the process.
func Fatal(err error, msg string, fields ...any) {
	Logger().Fatal().Err(err).Fields(normalize(fields)).CallerSkipFrame(1).Msg(msg)
}

// normalize guards against an odd field count, which would make zerolog panic.
func normalize(fields []any) []any {
	if len(fields)%2 != 0 {
		Logger().Warn().Int("fields_count", len(fields)).Msg("logx call with odd number of fields; fields dropped")
		return nil
	}
	return fields
}
