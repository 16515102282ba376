// Package logging builds the per-invocation zap logger. Every entry is
// written to an ordered in-memory text log that is later mailed and stored,
// and optionally to the console and a rotating file.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timeLayout = "2006-01-02 15:04:05"

// Options configures a Log.
type Options struct {
	// Level is the minimum level written to every sink ("debug", "info", ...).
	Level string
	// Console receives human readable output. Nil means os.Stderr; use
	// io.Discard to silence it.
	Console io.Writer
	// File enables a rotating JSON log file when set.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Log is the logger of one invocation together with its captured text.
type Log struct {
	Logger *zap.Logger

	buf      *syncBuffer
	rotator  *lumberjack.Logger
	warnings atomic.Int64
	errors   atomic.Int64
}

// New builds a Log from opts.
func New(opts Options) (*Log, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	l := &Log{buf: &syncBuffer{}}

	textEncoder := zapcore.NewConsoleEncoder(textEncoderConfig())
	cores := []zapcore.Core{
		zapcore.NewCore(textEncoder, zapcore.AddSync(l.buf), level),
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	if console != io.Discard {
		consoleCfg := textEncoderConfig()
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.Lock(zapcore.AddSync(console)),
			level,
		))
	}

	if opts.File != "" {
		l.rotator = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 30),
			Compress:   opts.Compress,
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.TimeKey = "timestamp"
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		fileCfg.MessageKey = "message"
		fileCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileCfg),
			zapcore.AddSync(l.rotator),
			level,
		))
	}

	l.Logger = zap.New(zapcore.NewTee(cores...), zap.Hooks(l.count))
	return l, nil
}

func textEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "message",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
}

func (l *Log) count(e zapcore.Entry) error {
	switch {
	case e.Level >= zapcore.ErrorLevel:
		l.errors.Add(1)
	case e.Level == zapcore.WarnLevel:
		l.warnings.Add(1)
	}
	return nil
}

// Text returns everything logged so far, in order.
func (l *Log) Text() string { return l.buf.String() }

// Warnings returns the number of warning entries logged.
func (l *Log) Warnings() int { return int(l.warnings.Load()) }

// Errors returns the number of error entries logged.
func (l *Log) Errors() int { return int(l.errors.Load()) }

// HasError reports whether any error was logged.
func (l *Log) HasError() bool { return l.Errors() > 0 }

// Blank appends an empty line to the text log, separating summary blocks.
func (l *Log) Blank() { l.buf.WriteString("\n") }

// Close flushes the logger and closes the log file.
func (l *Log) Close() error {
	_ = l.Logger.Sync()
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) WriteString(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.WriteString(s)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
