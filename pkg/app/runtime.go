package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/d00mkeeps/ibhackathon/config"
	"github.com/d00mkeeps/ibhackathon/internal/chain"
	"github.com/d00mkeeps/ibhackathon/internal/dataset"
	"github.com/d00mkeeps/ibhackathon/internal/storage"
)

const (
	topicReloaded     = "engine.reloaded"
	topicReloadFailed = "engine.reload_failed"
)

type EngineBuilder func(ctx context.Context, cfg config.Config, ds chain.SnapshotSource) (*Engine, error)

type Option func(*Runtime)

func WithBuilder(builder EngineBuilder) Option {
	return func(r *Runtime) {
		if builder != nil {
			r.builder = builder
		}
	}
}

// Notifier receives engine lifecycle events: engine.reloaded with the new
// version, engine.reload_failed with the error. Payloads are JSON objects.
type Notifier func(topic, payload string)

func WithNotifier(fn Notifier) Option {
	return func(r *Runtime) {
		r.notify = fn
	}
}

// LogNotifier logs engine events with the payload fields attached.
func LogNotifier(log *logrus.Entry) Notifier {
	return func(topic, payload string) {
		fields := logrus.Fields{}
		if err := json.Unmarshal([]byte(payload), &fields); err != nil {
			fields["payload"] = payload
		}
		entry := log.WithFields(fields).WithField("topic", topic)
		if topic == topicReloadFailed {
			entry.Error("engine reload failed")
			return
		}
		entry.Info("engine ready")
	}
}

// WithStore supplies an already open store. The runtime closes it.
func WithStore(s *storage.Store) Option {
	return func(r *Runtime) {
		r.store = s
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(r *Runtime) {
		if l != nil {
			r.log = l
		}
	}
}

// Runtime owns the store and the dataset cache for the life of the process
// and rebuilds the engine whenever the config file changes.
type Runtime struct {
	cfgMgr *config.Manager
	engine atomic.Pointer[Engine]
	store  *storage.Store
	cache  *dataset.Cache

	builder EngineBuilder
	notify  Notifier
	log     *logrus.Entry
	cancel  context.CancelFunc
}

func NewRuntime(ctx context.Context, cfgMgr *config.Manager, opts ...Option) (*Runtime, error) {
	if cfgMgr == nil {
		return nil, errors.New("config manager is required")
	}

	rt := &Runtime{
		cfgMgr: cfgMgr,
		log:    logrus.WithField("component", "runtime"),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.notify == nil {
		rt.notify = LogNotifier(rt.log)
	}
	if rt.builder == nil {
		rt.builder = func(ctx context.Context, cfg config.Config, ds chain.SnapshotSource) (*Engine, error) {
			return BuildEngine(ctx, cfg, ds, rt.log)
		}
	}

	cfg := cfgMgr.Get()
	if rt.store == nil {
		store, err := storage.Open(ctx, &cfg)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		rt.store = store
	}
	rt.cache = dataset.NewCache(rt.store, rt.log.WithField("component", "dataset"))

	if err := rt.reload(ctx, cfg); err != nil {
		_ = rt.store.Close()
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel
	if err := cfgMgr.Watch(watchCtx, func(next config.Config) {
		if next.DatabaseDriver != cfg.DatabaseDriver || next.DatabaseURL != cfg.DatabaseURL {
			rt.log.Warn("database settings changed, restart to apply")
		}
		_ = rt.reload(watchCtx, next)
	}); err != nil {
		cancel()
		_ = rt.store.Close()
		return nil, err
	}

	return rt, nil
}

func (r *Runtime) Engine() *Engine {
	return r.engine.Load()
}

func (r *Runtime) Store() *storage.Store {
	return r.store
}

func (r *Runtime) Dataset() *dataset.Cache {
	return r.cache
}

func (r *Runtime) Config() config.Config {
	return r.cfgMgr.Get()
}

// NewChain builds a chain from the current engine.
func (r *Runtime) NewChain(opts ...chain.Option) *chain.Chain {
	return r.Engine().NewChain(opts...)
}

func (r *Runtime) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}

func (r *Runtime) reload(ctx context.Context, cfg config.Config) error {
	engine, err := r.builder(ctx, cfg, r.cache)
	if err != nil {
		r.notifyFailure(err)
		return err
	}
	r.engine.Store(engine)
	r.notifySuccess(engine)
	return nil
}

func (r *Runtime) notifySuccess(engine *Engine) {
	payload, _ := json.Marshal(map[string]any{
		"version":  engine.Version,
		"built_at": engine.BuiltAt.UTC().Format(time.RFC3339),
	})
	r.notify(topicReloaded, string(payload))
}

func (r *Runtime) notifyFailure(err error) {
	payload, _ := json.Marshal(map[string]string{
		"error": err.Error(),
	})
	r.notify(topicReloadFailed, string(payload))
}
