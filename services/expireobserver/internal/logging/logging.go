// Package logging provides the small level-tagged logger used across the
// collaboration platform's services.
package logging

import (
	"fmt"
	"log"
	"os"
)

type Logger struct {
	*log.Logger
}

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
