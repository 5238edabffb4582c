// Package logging provides a structured logging wrapper around charmbracelet/log.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// LevelEnvVar overrides the log level when no level is given explicitly.
const LevelEnvVar = "PKTEDIT_LOG_LEVEL"

// DefaultLevel is used when neither a flag nor LevelEnvVar sets a level.
const DefaultLevel = "warn"

var (
	defaultLogger     *log.Logger
	defaultLoggerOnce sync.Once
)

func getDefaultLogger() *log.Logger {
	defaultLoggerOnce.Do(func() {
		if defaultLogger == nil {
			defaultLogger = New(ResolveLevel(""))
		}
	})
	return defaultLogger
}

// New creates a logger writing to stderr at the given level.
// Valid levels: "debug", "info", "warn", "error".
func New(level string) *log.Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter creates a logger writing to w. The terminal editor owns
// stderr while it runs, so it logs to a file through this.
func NewWithWriter(w io.Writer, level string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    false,
		Prefix:          "pktedit",
	})

	setLoggerLevel(logger, level)

	return logger
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return NewWithWriter(io.Discard, "error")
}

// ResolveLevel returns level if set, else the LevelEnvVar value, else DefaultLevel.
func ResolveLevel(level string) string {
	if level != "" {
		return level
	}
	if env := os.Getenv(LevelEnvVar); env != "" {
		return env
	}
	return DefaultLevel
}

func setLoggerLevel(logger *log.Logger, level string) {
	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn", "warning":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.WarnLevel)
	}
}

// Default returns the package-level default logger.
func Default() *log.Logger {
	return getDefaultLogger()
}

// SetDefault sets the package-level default logger.
func SetDefault(logger *log.Logger) {
	getDefaultLogger()
	defaultLogger = logger
}

// SetLevel updates the log level of the default logger.
func SetLevel(level string) {
	setLoggerLevel(getDefaultLogger(), level)
}
