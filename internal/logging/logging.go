// Package logging wraps zap behind a small Logger interface, so every
// component depends on an interface rather than on zap directly.
package logging

import (
	"os"

	"go.uber.org/zap"
)

// Logger is the small Print/Printf/Println surface components log through,
// backed by a structured logger instead of fmt/os.Stdout.
type Logger interface {
	Print(v ...any)
	Printf(format string, v ...any)
	Println(v ...any)
}

type zapLogger struct {
	s *zap.SugaredLogger
}

func (z zapLogger) Print(v ...any)                 { z.s.Info(v...) }
func (z zapLogger) Printf(format string, v ...any) { z.s.Infof(format, v...) }
func (z zapLogger) Println(v ...any)               { z.s.Info(v...) }

// New builds a production logger, or a development one (colorized, with
// caller info) when VALVE_DEBUG is set.
func New() Logger {
	var zl *zap.Logger
	var err error
	if os.Getenv("VALVE_DEBUG") != "" {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		zl = zap.NewNop()
	}
	return zapLogger{s: zl.Sugar()}
}

// NullLogger discards everything; used by tests and library callers who
// don't want log output.
type NullLogger struct{}

func (NullLogger) Print(v ...any)                 {}
func (NullLogger) Printf(format string, v ...any) {}
func (NullLogger) Println(v ...any)               {}
