package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/sirupsen/logrus"

	"github.com/d00mkeeps/ibhackathon/config"
	"github.com/d00mkeeps/ibhackathon/internal/chain"
	"github.com/d00mkeeps/ibhackathon/internal/llm"
	"github.com/d00mkeeps/ibhackathon/internal/prompt"
	"github.com/d00mkeeps/ibhackathon/internal/search"
)

// Engine is everything derived from one config version. Sessions take the
// engine current at connect time and keep it for their whole life.
type Engine struct {
	Config  config.Config
	BuiltAt time.Time
	Version uint64

	model    model.BaseChatModel
	dataset  chain.SnapshotSource
	searcher search.Searcher
	quoter   search.Quoter
	builder  *prompt.Builder
	log      *logrus.Entry
}

var engineSeq atomic.Uint64

func NewEngine(cfg config.Config, m model.BaseChatModel, ds chain.SnapshotSource, searcher search.Searcher, quoter search.Quoter) *Engine {
	return &Engine{
		Config:   cfg,
		BuiltAt:  time.Now(),
		Version:  engineSeq.Add(1),
		model:    m,
		dataset:  ds,
		searcher: searcher,
		quoter:   quoter,
		builder: prompt.NewBuilder("", prompt.Provenance{
			Source: cfg.DatasetSource,
			AsOf:   cfg.DatasetAsOf,
		}),
		log: logrus.WithField("component", "chain"),
	}
}

// BuildEngine wires the configured model, search provider and optional
// quote source around the shared dataset.
func BuildEngine(ctx context.Context, cfg config.Config, ds chain.SnapshotSource, log *logrus.Entry) (*Engine, error) {
	m, err := llm.NewChatModel(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	var quoter search.Quoter
	if cfg.OnlineQuotes {
		quoter = search.NewCachedQuoter(search.NewYahooQuoter(), search.DefaultCacheTTL)
	}
	searcher := search.NewCachedSearcher(search.New(&cfg, log.WithField("component", "search")), search.DefaultCacheTTL)
	e := NewEngine(cfg, m, ds, searcher, quoter)
	e.log = log.WithField("component", "chain")
	return e, nil
}

// NewChain returns a chain bound to this engine. opts are applied after the
// engine's own settings.
func (e *Engine) NewChain(opts ...chain.Option) *chain.Chain {
	base := []chain.Option{
		chain.WithSearcher(e.searcher),
		chain.WithBuilder(e.builder),
		chain.WithLogger(e.log),
	}
	if e.quoter != nil {
		base = append(base, chain.WithQuoter(e.quoter))
	}
	return chain.New(e.model, e.dataset, append(base, opts...)...)
}
