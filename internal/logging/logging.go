// Package logging builds the structured logger shared by every command.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AppName is attached to every log entry.
const AppName = "foundry"

// EnvLevel names the environment variable consulted when no level flag is set.
const EnvLevel = "LOG_LEVEL"

// ParseLevel picks the flag value, then the environment value, then info.
func ParseLevel(flagValue, envValue string) (logrus.Level, error) {
	raw := strings.TrimSpace(flagValue)
	if raw == "" {
		raw = strings.TrimSpace(envValue)
	}
	if raw == "" {
		return logrus.InfoLevel, nil
	}
	level, err := logrus.ParseLevel(raw)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("invalid log level: %w", err)
	}
	return level, nil
}

// New returns a text logger writing to w.
func New(w io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	l.SetLevel(level)
	return l
}

// ForRun scopes l to a single invocation with a fresh run id.
func ForRun(l logrus.FieldLogger) *logrus.Entry {
	return l.WithFields(logrus.Fields{
		"app":    AppName,
		"run_id": uuid.NewString(),
	})
}
