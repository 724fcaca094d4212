package search

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/d00mkeeps/ibhackathon/config"
)

// ErrSearchUnavailable wraps every search failure, including a disabled
// adapter.
var ErrSearchUnavailable = errors.New("search unavailable")

// Searcher fetches a short live-web snippet for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Disabled is used when no provider is configured. It never does I/O.
type Disabled struct{}

func (Disabled) Search(context.Context, string) (string, error) {
	return "", ErrSearchUnavailable
}

// New picks the provider from cfg. A provider missing its credential yields
// a Disabled searcher rather than an error.
func New(cfg *config.Config, log *logrus.Entry) Searcher {
	if log == nil {
		log = logrus.WithField("component", "search")
	}
	switch cfg.SearchProvider {
	case config.SearchSerper, "":
		if cfg.SerperAPIKey == "" {
			log.Warn("SERPER_KEY not set, web search disabled")
			return Disabled{}
		}
		return NewSerperClient(cfg.SerperAPIKey, WithResults(cfg.SearchResults))
	case config.SearchGoogleNews:
		return NewGoogleNewsClient(WithResults(cfg.SearchResults))
	default:
		log.WithField("provider", cfg.SearchProvider).Info("web search disabled")
		return Disabled{}
	}
}

type clientOptions struct {
	baseURL string
	results int
}

type Option func(*clientOptions)

// WithBaseURL points a client at another endpoint.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithResults caps how many results go into a snippet.
func WithResults(n int) Option {
	return func(o *clientOptions) {
		if n > 0 {
			o.results = n
		}
	}
}

func applyOptions(base string, opts []Option) clientOptions {
	o := clientOptions{baseURL: base, results: 5}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
