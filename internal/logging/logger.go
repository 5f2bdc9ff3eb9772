// Package logging builds the process logger and carries it through context.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
)

// Options controls logger construction.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	Out    io.Writer
}

// New returns a logger and a cleanup func that flushes the non-blocking writer.
// Console output goes through a diode ring buffer so slow terminals never stall a query.
func New(opts Options) (zerolog.Logger, func()) {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	if opts.Format == "json" {
		return zerolog.New(out).Level(level).With().Timestamp().Logger(), func() {}
	}

	wr := diode.NewWriter(out, 1000, 5*time.Millisecond, func(missed int) {
		fmt.Fprintf(os.Stderr, "logger dropped %d messages\n", missed)
	})

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        wr,
		TimeFormat: time.DateTime,
		PartsOrder: []string{
			zerolog.LevelFieldName,
			zerolog.TimestampFieldName,
			zerolog.MessageFieldName,
		},
	}).Level(level).With().Timestamp().Logger()

	return logger, func() { _ = wr.Close() }
}

// WithLogger stores the logger in ctx.
func WithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// FromCtx returns the logger stored in ctx, or a disabled logger.
func FromCtx(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

const summaryLen = 50

// Summarize shortens long string values for log fields. Lengths count runes.
func Summarize(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok {
			if r := []rune(s); len(r) > summaryLen {
				out[k] = string(r[:summaryLen]) + "..."
				continue
			}
		}
		out[k] = v
	}
	return out
}
