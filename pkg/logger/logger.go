package logger

import (
	"io"
	"os"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Package-level leveled logger shared by the seeder CLI and the sync service.
// Level is controlled with LOG_LEVEL (debug|info|warn|error|fatal).

var (
	mu sync.RWMutex
	lg = newCharmLogger(os.Stdout, charmlog.InfoLevel)
)

func newCharmLogger(w io.Writer, level charmlog.Level) *charmlog.Logger {
	return charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
	})
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(level string) {
	InitWithWriter(level, os.Stdout)
}

// InitWithWriter is Init with an explicit output destination; used by tests.
func InitWithWriter(level string, w io.Writer) {
	lvl, err := charmlog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = charmlog.InfoLevel
	}
	mu.Lock()
	defer mu.Unlock()
	lg = newCharmLogger(w, lvl)
}

func get() *charmlog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return lg
}

func Debugf(format string, v ...interface{}) { get().Debugf(format, v...) }
func Infof(format string, v ...interface{})  { get().Infof(format, v...) }
func Warnf(format string, v ...interface{})  { get().Warnf(format, v...) }
func Errorf(format string, v ...interface{}) { get().Errorf(format, v...) }

// Fatalf logs at fatal level and exits the process with status 1.
func Fatalf(format string, v ...interface{}) { get().Fatalf(format, v...) }

// Single-string helpers for brief messages.
func Debug(v string) { get().Debug(v) }
func Info(v string)  { get().Info(v) }
func Warn(v string)  { get().Warn(v) }
func Error(v string) { get().Error(v) }

// LevelString returns the current level as text.
func LevelString() string {
	return get().GetLevel().String()
}
