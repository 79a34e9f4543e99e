package types

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a named sugared logger. Components get their own with Named.
type Logger struct {
	*zap.SugaredLogger
	LogsPath string
	Name     string
}

// Nop returns a logger that discards everything.
func Nop(name string) *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), Name: name}
}

// Named returns a child logger writing to the same cores.
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.Named(name),
		LogsPath:      l.LogsPath,
		Name:          name,
	}
}

// Log is one entry handed to a LogHook.
type Log struct {
	Timestamp  time.Time
	Caller     string
	LoggerName string
	Level      zapcore.Level
	Message    string
}

// LogHook receives every entry written through the process logger. It runs
// on the logging goroutine and must not block for long.
type LogHook func(log Log)
