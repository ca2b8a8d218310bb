package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler used by New.
type Format int

const (
	// FormatJSON writes one JSON object per record. Default.
	FormatJSON Format = iota
	// FormatText writes logfmt-style records for local development.
	FormatText
)

// ParseFormat maps "json"/"text" (case-insensitive) to a Format.
// Anything else yields FormatJSON.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "text") {
		return FormatText
	}
	return FormatJSON
}

// ParseLevel maps debug/info/warn/error to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

type options struct {
	format Format
	level  slog.Leveler
	output io.Writer
}

// Option configures New.
type Option func(*options)

// WithFormat sets the output format.
func WithFormat(f Format) Option {
	return func(o *options) { o.format = f }
}

// WithLevel sets the minimum level.
func WithLevel(l slog.Leveler) Option {
	return func(o *options) { o.level = l }
}

// WithOutput sets the destination writer (os.Stdout by default).
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.output = w }
}

// New builds a SlogLogger with JSON output at INFO on stdout unless
// overridden by opts.
func New(opts ...Option) *SlogLogger {
	o := &options{format: FormatJSON, level: slog.LevelInfo, output: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	ho := &slog.HandlerOptions{Level: o.level}

	var h slog.Handler
	switch o.format {
	case FormatText:
		h = slog.NewTextHandler(o.output, ho)
	default:
		h = slog.NewJSONHandler(o.output, ho)
	}

	return NewSlogLogger(slog.New(h))
}

// SlogLogger adapts *slog.Logger to Logger.
type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}

// Discard returns a logger that drops every record. Handy in tests.
func Discard() *SlogLogger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
