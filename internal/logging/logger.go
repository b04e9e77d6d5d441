package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnv names the environment variable holding the log level.
const LevelEnv = "MEDIAJOBS_LOG_LEVEL"

// Init initializes the global logger with configuration from environment variables.
// MEDIAJOBS_LOG_LEVEL controls the log level: debug, info, warn, error (default: info).
// Inside Lambda the output stays JSON for CloudWatch; elsewhere it is a
// human-readable console writer on stderr.
func Init() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv(LevelEnv)))
	log.Logger = zerolog.New(writer()).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func writer() io.Writer {
	if InLambda() {
		return os.Stdout
	}
	return zerolog.ConsoleWriter{Out: os.Stderr}
}

// InLambda reports whether the process runs inside the Lambda runtime.
func InLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}
