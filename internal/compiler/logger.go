package compiler

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger provides verbose output for analysis and generation decisions.
type Logger struct {
	enabled bool
	base    *logrus.Logger
	entry   *logrus.Entry
}

// NewLogger creates a new logger instance writing to stderr.
func NewLogger(enabled bool) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetLevel(logrus.DebugLevel)
	base.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return &Logger{
		enabled: enabled,
		base:    base,
		entry:   base.WithField("component", "compiler"),
	}
}

// SetOutput sets the output writer for the logger.
func (l *Logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
}

// SetFormatter replaces the log line formatter.
func (l *Logger) SetFormatter(f logrus.Formatter) {
	l.base.SetFormatter(f)
}

// SetLevel sets the lowest level that is written. Verbose output is
// logged at debug level.
func (l *Logger) SetLevel(level logrus.Level) {
	l.base.SetLevel(level)
}

// Log prints a formatted message if verbose mode is enabled.
func (l *Logger) Log(format string, args ...interface{}) {
	if l.enabled {
		l.entry.Debugf(format, args...)
	}
}

// Section prints a section header if verbose mode is enabled.
func (l *Logger) Section(name string) {
	if l.enabled {
		l.entry.Debugf("=== %s ===", name)
	}
}

// Diagnostic logs a grammar warning with its rule and code as fields.
func (l *Logger) Diagnostic(d Diagnostic) {
	if !l.enabled {
		return
	}
	e := l.entry.WithFields(logrus.Fields{"rule": d.Rule, "code": d.Code.String()})
	if d.Hint != "" {
		e = e.WithField("hint", d.Hint)
	}
	e.Warn(d.Message)
}

// Enabled returns whether the logger is enabled.
func (l *Logger) Enabled() bool {
	return l.enabled
}
