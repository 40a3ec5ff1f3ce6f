// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnv selects the log level: debug, info, warn, error (default: info)
const LevelEnv = "STREAMLOAD_LOG_LEVEL"

// Init initializes the global logger. Verbose forces debug level unless
// the environment asks for something else explicitly.
func Init(verbose bool) {
	InitWriter(os.Stderr, verbose)
}

// InitWriter is Init with a custom output
func InitWriter(w io.Writer, verbose bool) {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv(LevelEnv), verbose))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"})
}

// ParseLevel maps a level name to a zerolog level
func ParseLevel(level string, verbose bool) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	}
	if verbose {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
