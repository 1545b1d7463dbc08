package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Options configure the zerolog backed logger.
type Options struct {
	Level  string
	Format string // "console" or "json"
	Output io.Writer
}

// Zerolog adapts a zerolog.Logger to the Logger contract.
type Zerolog struct {
	base zerolog.Logger
}

var _ Logger = (*Zerolog)(nil)

// NewZerolog builds a logger writing to opts.Output (stderr by default).
func NewZerolog(opts Options) *Zerolog {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(strings.TrimSpace(opts.Format), "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: consoleTimeFormat}
	}
	level := ParseLevel(opts.Level)
	return &Zerolog{base: zerolog.New(out).Level(level).With().Timestamp().Logger()}
}

// FromZerolog wraps an existing zerolog logger.
func FromZerolog(l zerolog.Logger) *Zerolog {
	return &Zerolog{base: l}
}

// ParseLevel maps a textual level onto zerolog, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func (z *Zerolog) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return z
	}
	ctx := z.base.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, normalize(f.Value))
	}
	return &Zerolog{base: ctx.Logger()}
}

func (z *Zerolog) Debug(msg string, fields ...Field) { z.emit(z.base.Debug(), msg, fields) }
func (z *Zerolog) Info(msg string, fields ...Field)  { z.emit(z.base.Info(), msg, fields) }
func (z *Zerolog) Warn(msg string, fields ...Field)  { z.emit(z.base.Warn(), msg, fields) }
func (z *Zerolog) Error(msg string, fields ...Field) { z.emit(z.base.Error(), msg, fields) }

func (z *Zerolog) emit(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			e = e.AnErr(f.Key, v)
		case string:
			e = e.Str(f.Key, v)
		case int:
			e = e.Int(f.Key, v)
		case bool:
			e = e.Bool(f.Key, v)
		case time.Duration:
			e = e.Dur(f.Key, v)
		case time.Time:
			e = e.Time(f.Key, v)
		default:
			e = e.Interface(f.Key, v)
		}
	}
	e.Msg(msg)
}

// errors marshal to {} through Interface; render them as text instead.
func normalize(v any) any {
	if err, ok := v.(error); ok && err != nil {
		return err.Error()
	}
	return v
}
