package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// New builds the process logger. Unknown levels fall back to warn so that a
// typo in config never silences errors.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || opts.Level == "" {
		level = zerolog.WarnLevel
	}

	if strings.EqualFold(opts.Format, FormatJSON) {
		return zerolog.New(out).Level(level).With().Timestamp().Logger()
	}

	console := zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: !isTerminal(out)}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
