package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/kbukum/colpipe/util"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatPretty  = "pretty"
	FormatJSON    = "json"
)

// Logger is a zerolog logger carrying colpipe's standard fields.
type Logger struct {
	zl zerolog.Logger
}

// New builds a logger for cfg that writes to cfg.Output.
func New(cfg *Config, service string) *Logger {
	return NewWithWriter(cfg, service, outputWriter(cfg.Output))
}

// NewWithWriter builds a logger for cfg that writes to w, ignoring
// cfg.Output. An unknown level falls back to info.
func NewWithWriter(cfg *Config, service string, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var ctx zerolog.Context
	if isConsole(cfg.Format) {
		ctx = zerolog.New(consoleWriter(cfg, w)).With().Timestamp()
	} else {
		ctx = zerolog.New(w).With()
		if cfg.Timestamp {
			ctx = ctx.Timestamp()
		}
	}
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	if service != "" {
		ctx = ctx.Str(FieldService, service)
	}
	return &Logger{zl: ctx.Logger().Level(level)}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// ConfigFromEnv reads <prefix>_LOGGING_LEVEL, _FORMAT, _OUTPUT and _NO_COLOR.
// It serves diagnostics emitted before the configuration is loaded.
func ConfigFromEnv(prefix string) Config {
	env := func(key string) string {
		return util.SanitizeEnvValue(os.Getenv(prefix + "_LOGGING_" + key))
	}
	cfg := Config{
		Level:   env("LEVEL"),
		Format:  env("FORMAT"),
		Output:  env("OUTPUT"),
		NoColor: strings.EqualFold(env("NO_COLOR"), "true"),
	}
	cfg.ApplyDefaults()
	return cfg
}

func (l *Logger) with(fn func(zerolog.Context) zerolog.Context) *Logger {
	return &Logger{zl: fn(l.zl.With()).Logger()}
}

// WithContext tags the logger with the run id stored in ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	id := RunIDFromContext(ctx)
	if id == "" {
		return l
	}
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Str(FieldRunID, id) })
}

// WithComponent tags the logger with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Str(FieldComponent, name) })
}

// WithFields adds fields to every entry.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Fields(fields) })
}

// WithError adds an error field to every entry.
func (l *Logger) WithError(err error) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Err(err) })
}

func (l *Logger) emit(level zerolog.Level, msg string, fields []map[string]interface{}) {
	e := l.zl.WithLevel(level)
	for _, f := range fields {
		e = e.Fields(f)
	}
	e.Msg(msg)
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.emit(zerolog.DebugLevel, msg, fields)
}

// Info logs at info level.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.emit(zerolog.InfoLevel, msg, fields)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.emit(zerolog.WarnLevel, msg, fields)
}

// Error logs at error level.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.emit(zerolog.ErrorLevel, msg, fields)
}

type runIDKey struct{}

// ContextWithRunID stores a run id in ctx for WithContext.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run id stored in ctx, if any.
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

var global atomic.Pointer[Logger]

// Setup builds the process-wide logger from cfg, writing to w, and seeds
// the component registry from it.
func Setup(cfg Config, service string, w io.Writer) *Logger {
	cfg.ApplyDefaults()
	l := NewWithWriter(&cfg, service, w)
	SetGlobalLogger(l)
	RegisterDefaults()
	return l
}

// SetGlobalLogger replaces the process-wide logger.
func SetGlobalLogger(l *Logger) { global.Store(l) }

// GetGlobalLogger returns the process-wide logger. Until one is set it is a
// default console logger on stderr.
func GetGlobalLogger() *Logger {
	if l := global.Load(); l != nil {
		return l
	}
	cfg := Config{}
	cfg.ApplyDefaults()
	l := New(&cfg, "")
	global.CompareAndSwap(nil, l)
	return global.Load()
}

// Debug logs through the global logger.
func Debug(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Debug(msg, fields...) }

// Info logs through the global logger.
func Info(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Info(msg, fields...) }

// Warn logs through the global logger.
func Warn(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Warn(msg, fields...) }

// Error logs through the global logger.
func Error(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Error(msg, fields...) }

func isConsole(format string) bool {
	switch strings.ToLower(format) {
	case FormatConsole, FormatPretty, "text":
		return true
	}
	return false
}

// outputWriter picks the log destination. Standard output carries pipeline
// data, so it is only used when asked for explicitly.
func outputWriter(output string) io.Writer {
	if strings.EqualFold(output, "stdout") {
		return os.Stdout
	}
	return os.Stderr
}

var levelTags = map[string][2]string{
	"debug": {"[DBG]", "\033[36m"},
	"info":  {"[INF]", "\033[32m"},
	"warn":  {"[WRN]", "\033[33m"},
	"error": {"[ERR]", "\033[31m"},
	"fatal": {"[FTL]", "\033[35m"},
}

func consoleWriter(cfg *Config, w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    cfg.NoColor,
		FormatLevel: func(i interface{}) string {
			lvl := fmt.Sprint(i)
			t, ok := levelTags[lvl]
			if !ok {
				return "[" + strings.ToUpper(lvl) + "]"
			}
			if cfg.NoColor {
				return t[0]
			}
			return t[1] + t[0] + "\033[0m"
		},
		FormatFieldName: func(i interface{}) string { return fmt.Sprint(i) + ":" },
	}
}
