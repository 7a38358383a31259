// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package logger provides a simple leveled logger for the Photo Cache application.
package logger

import (
	"fmt"
	"log"
	"os"
)

// Logger defines the logging interface used across the application.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// stdLogger implements Logger on top of the standard library log package.
type stdLogger struct {
	out *log.Logger
}

// New creates a new Logger writing to stdout.
func New() Logger {
	return &stdLogger{
		out: log.New(os.Stdout, "", log.LstdFlags),
	}
}

func (l *stdLogger) Debug(format string, args ...interface{}) {
	l.out.Println("[DEBUG] " + fmt.Sprintf(format, args...))
}

func (l *stdLogger) Info(format string, args ...interface{}) {
	l.out.Println("[INFO] " + fmt.Sprintf(format, args...))
}

func (l *stdLogger) Error(format string, args ...interface{}) {
	l.out.Println("[ERROR] " + fmt.Sprintf(format, args...))
}
