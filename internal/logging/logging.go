package logging

import (
	"io"
	stdLog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Output formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Configure sets up the global zerolog logger writing to stdout.
func Configure(level, format string) zerolog.Level {
	return ConfigureWithWriter(level, format, os.Stdout)
}

// ConfigureWithWriter sets up the global logger on w. It returns the level in
// effect, falling back to info when level cannot be parsed.
func ConfigureWithWriter(level, format string, w io.Writer) zerolog.Level {
	lvl := ParseLevel(level)
	zerolog.SetGlobalLevel(lvl)

	if strings.ToLower(format) != FormatJSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(w).With().Timestamp()
	if lvl <= zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger().Level(lvl)
	zerolog.DefaultContextLogger = &log.Logger

	// Route stdlib log output, such as the fasthttp server's, through zerolog.
	stdLog.SetFlags(0)
	stdLog.SetOutput(log.Logger.With().Str("component", "stdlog").Logger())

	return lvl
}

// ParseLevel converts a level name, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Component returns a child of the global logger tagged with component.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
