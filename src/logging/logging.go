package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Configure sets the global logrus level and formatter. An empty level keeps
// the current one.
func Configure(level string) error {
	return configure(logrus.StandardLogger(), os.Stderr, level)
}

func configure(l *logrus.Logger, out io.Writer, level string) error {
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	level = strings.TrimSpace(level)
	if level == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.SetLevel(lvl)
	return nil
}
