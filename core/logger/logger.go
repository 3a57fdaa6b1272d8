package logger

import "fmt"

type Level string

const (
	Info  Level = "info"
	Warn  Level = "warn"
	Error Level = "error"
)

type Msg struct {
	Level Level
	Msg   string
}

// Logger collects diagnostics emitted during plan generation and execution
// so they can be surfaced to the user alongside the run result.
type Logger struct {
	Logs []Msg
}

func NewLogger() *Logger {
	return &Logger{
		Logs: []Msg{},
	}
}

func (l *Logger) LogInfo(format string, args ...interface{}) {
	l.append(Info, format, args...)
}

func (l *Logger) LogWarn(format string, args ...interface{}) {
	l.append(Warn, format, args...)
}

func (l *Logger) LogError(format string, args ...interface{}) {
	l.append(Error, format, args...)
}

// HasErrors reports whether any error-level message was logged
func (l *Logger) HasErrors() bool {
	for _, msg := range l.Logs {
		if msg.Level == Error {
			return true
		}
	}
	return false
}

func (l *Logger) append(level Level, format string, args ...interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.Logs = append(l.Logs, Msg{
		Level: level,
		Msg:   msg,
	})
}
