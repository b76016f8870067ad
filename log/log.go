// Package log is the leveled logger shared by the neuron host runtime.
//
// The package keeps a single process-wide unilogger.LeveledLogger. Until
// Default or SetLogger is called every logging function is a no-op, so the
// numeric core can log without forcing output on library users.
package log

import (
	"fmt"
	"io"
	golog "log"
	"os"
	"strings"
	"sync"

	unilogger "github.com/neuronlabs/uni-logger"
)

const (
	// LDEBUG is the logger DEBUG level.
	LDEBUG = unilogger.DEBUG
	// LINFO is the logger INFO level.
	LINFO = unilogger.INFO
	// LWARNING is the logger WARNING level.
	LWARNING = unilogger.WARNING
	// LERROR is the logger ERROR level.
	LERROR = unilogger.ERROR
	// LUNKNOWN is the unspecified logger level.
	LUNKNOWN = unilogger.UNKNOWN
)

var (
	lock         sync.RWMutex
	logger       unilogger.LeveledLogger
	currentLevel = LINFO
)

// Default creates and sets new unilogger.BasicLogger with writer to 'os.Stderr'.
func Default() {
	New(os.Stderr, "wbneuron ", golog.Ltime|golog.Lmicroseconds)
}

// New creates a unilogger.BasicLogger that writes to out and installs it.
func New(out io.Writer, prefix string, flags int) {
	basic := unilogger.NewBasicLogger(out, prefix, flags)
	basic.SetOutputDepth(4)
	SetLogger(basic)
}

// SetLogger sets l as the current logger and applies the current level.
func SetLogger(l unilogger.LeveledLogger) {
	lock.Lock()
	defer lock.Unlock()

	logger = l
	if setter, ok := l.(unilogger.LevelSetter); ok {
		setter.SetLevel(currentLevel)
	}
}

// Logger returns the current logger, or nil when none is installed.
func Logger() unilogger.LeveledLogger {
	lock.RLock()
	defer lock.RUnlock()

	return logger
}

// Level returns the current logger level.
func Level() unilogger.Level {
	lock.RLock()
	defer lock.RUnlock()

	return currentLevel
}

// ParseLevel converts a level name such as "debug" or "warning".
func ParseLevel(name string) (unilogger.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LDEBUG, nil
	case "info", "":
		return LINFO, nil
	case "warn", "warning":
		return LWARNING, nil
	case "error":
		return LERROR, nil
	default:
		return LUNKNOWN, fmt.Errorf("unknown log level %q", name)
	}
}

// SetLevel sets the level of the current and any future logger.
func SetLevel(level unilogger.Level) error {
	if level == LUNKNOWN {
		return fmt.Errorf("can't set unknown logger level")
	}

	lock.Lock()
	defer lock.Unlock()

	currentLevel = level
	if logger == nil {
		return nil
	}

	setter, ok := logger.(unilogger.LevelSetter)
	if !ok {
		return fmt.Errorf("logger doesn't implement LevelSetter interface")
	}

	setter.SetLevel(level)

	return nil
}

// Debugf writes the formatted LDEBUG level log.
func Debugf(format string, args ...interface{}) {
	if l := Logger(); l != nil {
		l.Debugf(format, args...)
	}
}

// Infof writes the formatted LINFO level log.
func Infof(format string, args ...interface{}) {
	if l := Logger(); l != nil {
		l.Infof(format, args...)
	}
}

// Warningf writes the formatted LWARNING level log.
func Warningf(format string, args ...interface{}) {
	if l := Logger(); l != nil {
		l.Warningf(format, args...)
	}
}

// Errorf writes the formatted LERROR level log.
func Errorf(format string, args ...interface{}) {
	if l := Logger(); l != nil {
		l.Errorf(format, args...)
	}
}

// Debug is a DebugLogger view of the package logger, usable where a value
// with a Debugf method is expected.
var Debug debugWriter

type debugWriter struct{}

func (debugWriter) Debugf(format string, args ...interface{}) {
	Debugf(format, args...)
}
