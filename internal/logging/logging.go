// Package logging provides the thin leveled-logging helper used across the
// master server, mirroring the log.Printf/log.Fatalf call-site style found
// throughout the retrieved pack (no structured-logging library appears in
// any example repo, so this stays on the standard library's log package).
package logging

import (
	"log"
	"os"
)

type Logger struct {
	*log.Logger
	component string
}

// New creates a Logger prefixed with the owning component name, the way
// internal/storage and internal/api prefix their own log lines by subsystem.
func New(component string) *Logger {
	return &Logger{
		Logger:    log.New(os.Stderr, "["+component+"] ", log.LstdFlags|log.Lmicroseconds),
		component: component,
	}
}

func (l *Logger) Debugf(format string, args ...any) { l.Printf("DEBUG "+format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.Printf("INFO "+format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.Printf("WARN "+format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.Printf("ERROR "+format, args...) }
