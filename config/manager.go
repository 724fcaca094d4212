package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Manager keeps the current Config in sync with a JSON file on disk. Secrets
// never reach the file; they are re-read from the environment on every load.
type Manager struct {
	path     string
	debounce time.Duration
	log      *logrus.Entry

	mu       sync.RWMutex
	cfg      Config
	onChange func(Config)
	watching bool

	// set while our own write is in flight so the watcher ignores it
	selfWrite atomic.Bool
}

type managerOptions struct {
	path     string
	initial  *Config
	debounce time.Duration
}

type ManagerOption func(*managerOptions)

func WithConfigPath(path string) ManagerOption {
	return func(o *managerOptions) {
		if path != "" {
			o.path = path
		}
	}
}

func WithDebounce(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithInitialConfig seeds the file when it does not exist yet.
func WithInitialConfig(cfg *Config) ManagerOption {
	return func(o *managerOptions) {
		o.initial = cfg
	}
}

func NewManager(opts ...ManagerOption) (*Manager, error) {
	options := managerOptions{debounce: 300 * time.Millisecond}
	for _, opt := range opts {
		opt(&options)
	}
	if options.path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			if dir, err = os.Getwd(); err != nil {
				return nil, err
			}
		}
		options.path = filepath.Join(dir, "cara", "config.json")
	}
	if err := os.MkdirAll(filepath.Dir(options.path), 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	cfg, err := loadOrSeed(options.path, options.initial)
	if err != nil {
		return nil, err
	}
	return &Manager{
		path:     options.path,
		debounce: options.debounce,
		log:      logrus.WithField("component", "config"),
		cfg:      cfg,
	}, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) UpdateFromJSON(jsonStr string) error {
	var cfg Config
	if err := json.Unmarshal([]byte(jsonStr), &cfg); err != nil {
		return fmt.Errorf("parse config json: %w", err)
	}
	return m.Update(cfg)
}

// Update validates cfg, writes it to disk and notifies the Watch callback.
func (m *Manager) Update(cfg Config) error {
	cfg.LoadSecrets()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if reflect.DeepEqual(m.Get(), cfg) {
		return nil
	}

	m.selfWrite.Store(true)
	err := writeConfigFile(m.path, cfg)
	time.AfterFunc(m.debounce, func() { m.selfWrite.Store(false) })
	if err != nil {
		return err
	}
	m.apply(cfg)
	return nil
}

// Watch calls onChange after every valid edit of the config file until ctx
// is done. Only the first call starts a watcher; later calls replace the
// callback.
func (m *Manager) Watch(ctx context.Context, onChange func(Config)) error {
	m.mu.Lock()
	m.onChange = onChange
	started := m.watching
	m.watching = true
	m.mu.Unlock()
	if started {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors replace files by rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	go m.watchLoop(ctx, watcher)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != filepath.Clean(m.path) ||
				evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 ||
				m.selfWrite.Load() {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(m.debounce, m.reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.log.WithError(err).Warn("config watcher error")
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) reload() {
	cfg, err := readConfigFile(m.path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		m.log.WithError(err).Error("config reload failed, keeping current settings")
		return
	}
	if reflect.DeepEqual(m.Get(), cfg) {
		return
	}
	m.log.WithField("path", m.path).Info("config reloaded")
	m.apply(cfg)
}

func (m *Manager) apply(cfg Config) {
	m.mu.Lock()
	m.cfg = cfg
	cb := m.onChange
	m.mu.Unlock()

	if cb != nil {
		cb(cfg)
	}
}

func loadOrSeed(path string, initial *Config) (Config, error) {
	cfg, err := readConfigFile(path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		if initial != nil {
			cfg = *initial
		} else {
			cfg = *DefaultConfigWithRoot(filepath.Dir(path))
		}
		if err := cfg.Validate(); err != nil {
			return Config{}, err
		}
		if err := writeConfigFile(path, cfg); err != nil {
			return Config{}, fmt.Errorf("write initial config: %w", err)
		}
		return cfg, nil
	default:
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// readConfigFile decodes path over the defaults so that keys missing from an
// older file keep their default values.
func readConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := *DefaultConfigWithRoot(filepath.Dir(path))
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg.LoadSecrets()
	return cfg, nil
}

// writeConfigFile replaces path atomically.
func writeConfigFile(path string, cfg Config) error {
	data, err := json.MarshalIndent(&cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "config-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
