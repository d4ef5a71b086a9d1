package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

var Logger *log.Logger

var (
	mu         sync.Mutex
	components []*log.Logger
)

func init() {
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "wayplat",
	})
	SetLevel(os.Getenv("LOG_LEVEL"))
}

// SetLevel parses a level name and applies it to the global logger.
// Unknown or empty names fall back to INFO.
func SetLevel(name string) {
	level := ParseLevel(name)
	Logger.SetLevel(level)

	mu.Lock()
	defer mu.Unlock()
	for _, l := range components {
		l.SetLevel(level)
	}
}

// ParseLevel maps a case-insensitive level name to a log.Level.
func ParseLevel(name string) log.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return log.DebugLevel
	case "INFO":
		return log.InfoLevel
	case "WARN", "WARNING":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	case "FATAL":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// With returns a sub-logger tagged with a component name. It follows later
// SetLevel calls.
func With(component string) *log.Logger {
	l := Logger.With("component", component)
	mu.Lock()
	components = append(components, l)
	mu.Unlock()
	return l
}

// Convenience functions for common operations
func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

func Fatal(msg interface{}, keyvals ...interface{}) {
	Logger.Fatal(msg, keyvals...)
}

func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
}

func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	Logger.Fatalf(format, args...)
}
