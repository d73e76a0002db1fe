// Package logging provides the small level-tagged logger used across the
// room manager service, matching the plain log.Logger wrapper style used by
// the matchmaker's own internal/logging rather than a structured logging
// framework.
package logging

import (
	"fmt"
	"log"
	"os"
)

// Logger wraps the standard library logger with leveled convenience methods.
type Logger struct {
	*log.Logger
}

// New returns a Logger writing to stdout with date/time/short-file flags.
func New() *Logger {
	return &Logger{log.New(os.Stdout, "", log.LstdFlags|log.Lshortfile)}
}

func (l *Logger) Info(v ...interface{}) {
	l.Output(2, "[INFO] "+fmt.Sprintln(v...))
}

func (l *Logger) Warn(v ...interface{}) {
	l.Output(2, "[WARN] "+fmt.Sprintln(v...))
}

func (l *Logger) Error(v ...interface{}) {
	l.Output(2, "[ERROR] "+fmt.Sprintln(v...))
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.Output(2, "[INFO] "+fmt.Sprintf(format, v...))
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.Output(2, "[WARN] "+fmt.Sprintf(format, v...))
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.Output(2, "[ERROR] "+fmt.Sprintf(format, v...))
}
