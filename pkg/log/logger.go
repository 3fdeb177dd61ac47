package log

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// TimestampFormat is the clock-only timestamp used for console output
const TimestampFormat = "15:04:05.000"

// NewLogger builds the application logger writing to w (stderr if nil).
// Unknown levels fall back to info and are reported in the returned error.
func NewLogger(level string, w io.Writer) (*logrus.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: TimestampFormat,
	})

	if level == "" {
		logger.SetLevel(logrus.InfoLevel)
		return logger, nil
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
		return logger, fmt.Errorf("invalid log level '%s', using info: %w", level, err)
	}
	logger.SetLevel(parsed)
	return logger, nil
}

// Component returns an entry tagged with the component field
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}
