package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fsgraph/src/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is the process-wide logger. It writes JSON to stderr until
// InitLogger replaces it.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

var timeFormats = map[string]string{
	"unix":    zerolog.TimeFormatUnix,
	"iso8601": "2006-01-02T15:04:05.000Z07:00",
	"rfc3339": time.RFC3339,
}

// InitLogger initializes the global logger with the provided configuration
func InitLogger(config model.LogConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return fmt.Errorf("invalid log level '%s': %w", config.Level, err)
	}

	output, err := openOutput(config)
	if err != nil {
		return err
	}
	if strings.EqualFold(config.Format, "console") {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if format, ok := timeFormats[strings.ToLower(config.TimeFormat)]; ok {
		zerolog.TimeFieldFormat = format
	}

	Logger = zerolog.New(output).With().
		Timestamp().
		Caller().
		Logger()
	log.Logger = Logger

	Logger.Debug().
		Str("level", config.Level).
		Str("format", config.Format).
		Str("output", config.Output).
		Msg("Logger initialized")

	return nil
}

// openOutput resolves the configured sink. Log files are appended to and
// their directory is created on demand.
func openOutput(config model.LogConfig) (io.Writer, error) {
	switch strings.ToLower(config.Output) {
	case "stderr":
		return os.Stderr, nil
	case "file":
		if dir := filepath.Dir(config.FilePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file '%s': %w", config.FilePath, err)
		}
		return file, nil
	default:
		return os.Stdout, nil
	}
}

func Info() *zerolog.Event {
	return Logger.Info()
}

func Debug() *zerolog.Event {
	return Logger.Debug()
}

func Warn() *zerolog.Event {
	return Logger.Warn()
}

func Error() *zerolog.Event {
	return Logger.Error()
}
