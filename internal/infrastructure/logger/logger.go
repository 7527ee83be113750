package logger

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New constructs a zerolog logger based on level and format configuration, tagged with
// the service and environment.
func New(level, format, service, environment string) (zerolog.Logger, error) {
	return NewWithWriter(os.Stdout, level, format, service, environment)
}

func NewWithWriter(out io.Writer, level, format, service, environment string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, err
	}

	var writer io.Writer
	switch strings.ToLower(format) {
	case "json":
		writer = out
	case "console", "":
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return zerolog.Logger{}, errors.New("unsupported log format")
	}

	zerolog.SetGlobalLevel(lvl)
	ctx := zerolog.New(writer).With().Timestamp()
	if service != "" {
		ctx = ctx.Str("service", service)
	}
	if environment != "" {
		ctx = ctx.Str("environment", environment)
	}
	return ctx.Logger().Level(lvl), nil
}
