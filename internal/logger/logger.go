// internal/logger/logger.go
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus so callers get Printf/Warnf/Fatalf without
// importing logrus everywhere.
type Logger struct {
	*logrus.Logger
}

// NewLogger creates a logger writing to stdout with timestamps.
func NewLogger() *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if os.Getenv("LOG_LEVEL") == "debug" {
		l.SetLevel(logrus.DebugLevel)
	}
	return &Logger{l}
}
