package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

const timestampFormat = "01-02 15:04:05"

// LevelEnv names the log level variable.
const LevelEnv = "LOG_LEVEL"

// NewLogger creates a logger writing "LEVEL MM-DD HH:MM:SS message k=v" lines
// to stderr, at the level named by LOG_LEVEL.
func NewLogger() *logrus.Logger {
	return NewLoggerTo(os.Stderr, os.Getenv(LevelEnv))
}

// NewLoggerTo is NewLogger with an explicit writer and level name.
func NewLoggerTo(w io.Writer, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&LineFormatter{})
	logger.SetLevel(ParseLevel(level))
	return logger
}

// ParseLevel maps debug|info|warn|error to a logrus level; anything else is info.
func ParseLevel(v string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// LineFormatter renders entries as a single human-readable line.
type LineFormatter struct{}

func (f *LineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(strings.ToUpper(e.Level.String()))
	b.WriteByte(' ')
	b.WriteString(e.Time.Format(timestampFormat))
	b.WriteByte(' ')
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
