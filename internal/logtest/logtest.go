// Package logtest provides a types.Logger for tests.
package logtest

import "github.com/go-monolith/mono/pkg/types"

// Logger discards everything logged to it.
type Logger struct{}

var _ types.Logger = (*Logger)(nil)

// Discard returns a Logger that drops all output.
func Discard() *Logger {
	return &Logger{}
}

func (l *Logger) Debug(string, ...any) {}

func (l *Logger) Info(string, ...any) {}

func (l *Logger) Warn(string, ...any) {}

func (l *Logger) Error(string, ...any) {}

func (l *Logger) With(...any) types.Logger {
	return l
}

func (l *Logger) WithError(error) types.Logger {
	return l
}

func (l *Logger) WithModule(string) types.Logger {
	return l
}
