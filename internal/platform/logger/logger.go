// Package logger owns the process-wide zerolog logger and the context fields
// (request, run, logical date, stage) every line can carry
package logger

import (
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"commitflow/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is the logging type used across the module
type Logger = zerolog.Logger

// Options configures the root logger
type Options struct {
	Level       string // zerolog level name; unknown names mean debug
	Format      string // "console" or "json"
	Service     string
	Component   string
	Writer      io.Writer // stdout when nil
	WithCaller  bool
	SampleEvery int // keep one line in N when N > 1
}

// FromEnv reads Options from LOG_*
func FromEnv() Options {
	env := raw.New().Prefix("LOG_")
	return Options{
		Level:       strings.ToLower(env.Get("LEVEL", "debug")),
		Format:      strings.ToLower(env.Get("FORMAT", "console")),
		Service:     env.Get("SERVICE", ""),
		Component:   env.Get("COMPONENT", ""),
		WithCaller:  env.Bool("CALLER", false),
		SampleEvery: env.Int("SAMPLE_EVERY", 0),
	}
}

var (
	initOnce sync.Once
	root     atomic.Pointer[Logger]
)

// Init builds the root logger. Only the first call has any effect.
func Init(opt Options) {
	initOnce.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		out := opt.Writer
		if out == nil {
			out = os.Stdout
		}
		if opt.Format == "console" {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		}

		b := zerolog.New(out).Level(level(opt.Level)).With().
			Timestamp().
			Str("go_version", runtime.Version())
		if opt.Service != "" {
			b = b.Str("service", opt.Service)
		}
		if opt.Component != "" {
			b = b.Str("component", opt.Component)
		}
		if opt.WithCaller {
			b = b.Caller()
		}
		l := b.Logger()
		if opt.SampleEvery > 1 {
			l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
		}
		root.Store(&l)
	})
}

// Get returns the root logger, building it from the environment on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return root.Load()
}

// Named returns a child of the root tagged with component
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}

func level(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	l, err := zerolog.ParseLevel(s)
	if err != nil || l == zerolog.NoLevel {
		return zerolog.DebugLevel
	}
	return l
}
