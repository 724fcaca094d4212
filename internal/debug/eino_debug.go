package debug

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/devops"
	"github.com/sirupsen/logrus"

	"github.com/d00mkeeps/ibhackathon/config"
)

// EinoDebugger starts the eino visual debug server when enabled in config.
type EinoDebugger struct {
	config *config.Config
	log    *logrus.Entry
	init   func(ctx context.Context) error
}

func NewEinoDebugger(cfg *config.Config, log *logrus.Entry) *EinoDebugger {
	if log == nil {
		log = logrus.WithField("component", "eino_debug")
	}
	return &EinoDebugger{
		config: cfg,
		log:    log,
		init:   func(ctx context.Context) error { return devops.Init(ctx) },
	}
}

func (d *EinoDebugger) Initialize(ctx context.Context) error {
	if !d.IsEnabled() {
		return nil
	}
	d.log.WithField("port", d.config.EinoDebugPort).Debug("initializing eino debug server")

	if err := d.init(ctx); err != nil {
		return fmt.Errorf("init eino debug server: %w", err)
	}

	d.log.WithField("url", d.GetDebugURL()).Info("eino debug server ready")
	return nil
}

func (d *EinoDebugger) IsEnabled() bool {
	return d.config != nil && d.config.EinoDebugEnabled
}

func (d *EinoDebugger) GetDebugURL() string {
	if !d.IsEnabled() {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d", d.config.EinoDebugPort)
}
