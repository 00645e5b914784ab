package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"NSSaDS/ftp/pkg/config"
)

// Setup configures the global logrus logger from cfg.
func Setup(cfg config.LogConfig, out io.Writer) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logrus.SetLevel(level)

	switch cfg.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log format %q", cfg.Format)
	}

	if out == nil {
		out = os.Stderr
	}
	logrus.SetOutput(out)

	return nil
}
