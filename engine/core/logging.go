package core

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// LogConfig controls how engine loggers are built.
type LogConfig struct {
	Level  string
	Prefix string
	Output io.Writer
	// Caller reports the file and line of the log call.
	Caller bool
}

// DefaultLogConfig mirrors the settings used for the process-wide logger.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Prefix: "Engine 🏎️ ",
		Output: os.Stderr,
		Caller: true,
	}
}

// NewLogger builds a logger that can be handed to engine subsystems.
// Unknown levels fall back to info.
func NewLogger(cfg LogConfig) *log.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	l := log.NewWithOptions(out, log.Options{
		ReportCaller:    cfg.Caller,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          cfg.Prefix,
	})
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	l.SetLevel(level)
	return l
}

// DiscardLogger returns a logger that drops everything. Used by tests.
func DiscardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

var once sync.Once

var singleton *log.Logger

func getLogger() *log.Logger {
	once.Do(func() {
		singleton = NewLogger(DefaultLogConfig())
	})
	return singleton
}

// SetLogLevel adjusts the process-wide logger.
func SetLogLevel(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		getLogger().Warnf("unknown log level %q, keeping %s", level, getLogger().GetLevel())
		return
	}
	getLogger().SetLevel(lvl)
}

// Logger exposes the process-wide logger so it can be passed explicitly.
func Logger() *log.Logger {
	return getLogger()
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}
