package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/d00mkeeps/ibhackathon/config"
)

// Setup configures the standard logrus logger from cfg and returns it.
func Setup(cfg *config.Config) *logrus.Logger {
	return configure(logrus.StandardLogger(), cfg, os.Stderr)
}

func configure(l *logrus.Logger, cfg *config.Config, out io.Writer) *logrus.Logger {
	l.SetOutput(out)
	if cfg.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if cfg.Debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return logrus.WithField("component", name)
}
