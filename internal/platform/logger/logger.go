// Package logger wraps zerolog: one lazily built root logger, component
// children, and loggers enriched from request and job context
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/spf13/viper"
)

// Logger is the logging type used across the module
type Logger = zerolog.Logger

// Options configures the root logger
type Options struct {
	Level        string
	Format       string // console or json
	Service      string
	Component    string
	Writer       io.Writer
	WithCaller   bool
	SampleEvery  int
	StaticFields map[string]string
}

// FromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_SERVICE, LOG_COMPONENT, LOG_CALLER and LOG_SAMPLE_EVERY.
// It uses its own viper so config can log through this package
func FromEnv() Options {
	v := viper.New()
	v.SetEnvPrefix("LOG")
	v.AutomaticEnv()
	v.SetDefault("level", "debug")
	v.SetDefault("format", "console")
	return Options{
		Level:       strings.ToLower(strings.TrimSpace(v.GetString("level"))),
		Format:      strings.ToLower(strings.TrimSpace(v.GetString("format"))),
		Service:     strings.TrimSpace(v.GetString("service")),
		Component:   strings.TrimSpace(v.GetString("component")),
		WithCaller:  v.GetBool("caller"),
		SampleEvery: v.GetInt("sample_every"),
	}
}

var (
	once   sync.Once
	root   atomic.Pointer[zerolog.Logger]
	inited atomic.Bool
)

// Get returns the root logger, building it from the environment on first use
func Get() *Logger {
	if !inited.Load() {
		Init(FromEnv())
	}
	return root.Load()
}

// Init builds the root logger. Only the first call has any effect
func Init(opt Options) {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		w := opt.Writer
		if w == nil {
			w = os.Stdout
		}
		if opt.Format == "console" {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		}

		zc := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
		if bi, ok := debug.ReadBuildInfo(); ok {
			zc = zc.Str("go_version", bi.GoVersion)
		}
		for k, v := range map[string]string{"service": opt.Service, "component": opt.Component} {
			if v != "" {
				zc = zc.Str(k, v)
			}
		}
		for k, v := range opt.StaticFields {
			zc = zc.Str(k, v)
		}
		if opt.WithCaller {
			zc = zc.Caller()
		}

		l := zc.Logger()
		if opt.SampleEvery > 1 {
			l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
		}
		root.Store(&l)
		inited.Store(true)
	})
}

// parseLevel maps names to levels, unknown or empty is debug
func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel || lvl == zerolog.Disabled {
		return zerolog.DebugLevel
	}
	return lvl
}

type ctxKey string

// context fields C copies onto the child logger, in this order
var ctxFields = []struct {
	key   ctxKey
	field string
}{
	{"req_id", "request_id"},
	{"job_id", "job_id"},
}

func with(ctx context.Context, k ctxKey, v string) context.Context {
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, k, v)
}

// WithRequest annotates ctx with the request id
func WithRequest(ctx context.Context, reqID string) context.Context { return with(ctx, "req_id", reqID) }

// RequestID is the id WithRequest put on ctx
func RequestID(ctx context.Context) string {
	s, _ := ctx.Value(ctxKey("req_id")).(string)
	return s
}

// WithJob annotates ctx with the annotation job being processed
func WithJob(ctx context.Context, jobID string) context.Context { return with(ctx, "job_id", jobID) }

// C returns a child of the root logger carrying the ids found on ctx
func C(ctx context.Context) *Logger {
	zc := Get().With()
	for _, f := range ctxFields {
		if s, _ := ctx.Value(f.key).(string); s != "" {
			zc = zc.Str(f.field, s)
		}
	}
	l := zc.Logger()
	return &l
}

// Named returns a child logger with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}
