// Package logger provides the service's leveled logger, backed by
// github.com/op/go-logging and writing to stderr.
package logger

import (
	"os"

	"github.com/op/go-logging"
)

const (
	module     = "quizwhiz"
	timeFormat = "2006/01/02 15:04:05"
)

// Usable before InitLogger is called; go-logging falls back to its default
// stderr backend.
var logger = logging.MustGetLogger(module)

// InitLogger installs a formatted stderr backend filtered at level.
func InitLogger(level logging.Level) {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, logging.MustStringFormatter(
		`%{time:`+timeFormat+`} %{level:.4s} - %{message}`,
	))
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(level, module)

	newLogger := logging.MustGetLogger(module)
	newLogger.SetBackend(leveled)
	logger = newLogger
}

// ParseLevel converts a level name such as "debug" or "warning" into a
// logging.Level.
func ParseLevel(name string) (logging.Level, error) {
	return logging.LogLevel(name)
}

// Debug logs a debug message.
func Debug(args ...any) {
	logger.Debug(args...)
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}

// Info logs an info message.
func Info(args ...any) {
	logger.Info(args...)
}

// Infof logs a formatted info message.
func Infof(format string, args ...any) {
	logger.Infof(format, args...)
}

// Warning logs a warning message.
func Warning(args ...any) {
	logger.Warning(args...)
}

// Warningf logs a formatted warning message.
func Warningf(format string, args ...any) {
	logger.Warningf(format, args...)
}

// Error logs an error message.
func Error(args ...any) {
	logger.Error(args...)
}

// Errorf logs a formatted error message.
func Errorf(format string, args ...any) {
	logger.Errorf(format, args...)
}
