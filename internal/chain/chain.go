package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"github.com/d00mkeeps/ibhackathon/consts"
	"github.com/d00mkeeps/ibhackathon/internal/dataset"
	"github.com/d00mkeeps/ibhackathon/internal/prompt"
	"github.com/d00mkeeps/ibhackathon/internal/search"
	"github.com/d00mkeeps/ibhackathon/models"
)

var (
	ErrEmptyMessage      = errors.New("message is empty")
	ErrNotInitialized    = errors.New("conversation chain not initialized")
	ErrTurnInProgress    = errors.New("a reply is still streaming")
	ErrHistoryNotEmpty   = errors.New("history can only be restored before the first turn")
	errAbandonedByCaller = errors.New("stream closed by consumer")
)

type State int

const (
	Uninitialized State = iota
	Ready
	CompanyLoaded
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case CompanyLoaded:
		return "company_loaded"
	default:
		return "uninitialized"
	}
}

// SnapshotSource hands out the shared dataset snapshot.
type SnapshotSource interface {
	Snapshot(ctx context.Context) *dataset.Snapshot
}

// TurnRecorder receives every committed turn.
type TurnRecorder interface {
	RecordTurn(user, assistant string)
}

// Chain is the per-session conversation state. The history only ever grows
// by whole turns: a user entry and the assistant reply to it.
type Chain struct {
	model    model.BaseChatModel
	dataset  SnapshotSource
	searcher search.Searcher
	quoter   search.Quoter
	recorder TurnRecorder
	builder  *prompt.Builder
	log      *logrus.Entry

	mu       sync.Mutex
	state    State
	snapshot *dataset.Snapshot
	company  *models.Company
	match    *models.DatasetRecord
	history  []*schema.Message
	busy     bool
}

type Option func(*Chain)

func WithSearcher(s search.Searcher) Option {
	return func(c *Chain) {
		if s != nil {
			c.searcher = s
		}
	}
}

// WithQuoter enables the live quote line for matched tickers.
func WithQuoter(q search.Quoter) Option {
	return func(c *Chain) { c.quoter = q }
}

func WithRecorder(r TurnRecorder) Option {
	return func(c *Chain) { c.recorder = r }
}

func WithBuilder(b *prompt.Builder) Option {
	return func(c *Chain) {
		if b != nil {
			c.builder = b
		}
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(c *Chain) {
		if l != nil {
			c.log = l
		}
	}
}

func New(m model.BaseChatModel, ds SnapshotSource, opts ...Option) *Chain {
	c := &Chain{
		model:    m,
		dataset:  ds,
		searcher: search.Disabled{},
		builder:  prompt.NewBuilder("", prompt.Provenance{}),
		log:      logrus.WithField("component", "chain"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init takes the dataset snapshot the chain uses for its whole life. Calling
// it again is a no-op.
func (c *Chain) Init(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Uninitialized {
		return
	}
	if c.dataset != nil {
		c.snapshot = c.dataset.Snapshot(ctx)
	}
	if c.snapshot == nil {
		c.snapshot = dataset.NewSnapshot(nil)
	}
	c.state = Ready
}

func (c *Chain) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LoadCompanyContext makes company current and looks it up in the dataset.
// A missing dataset match is not an error.
func (c *Chain) LoadCompanyContext(company models.Company) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Uninitialized {
		return ErrNotInitialized
	}
	c.company = &company
	c.match = c.snapshot.FindByName(company.Name)
	c.state = CompanyLoaded

	entry := c.log.WithField("company", company.Name)
	if c.match != nil {
		entry.WithField("ticker", c.match.Ticker).WithField("dataset_name", c.match.Name).Info("company matched in dataset")
	} else {
		entry.Info("company not found in dataset")
	}
	return nil
}

// LoadCompanyByTicker replaces the dataset match by exact ticker lookup. The
// match is left unchanged when the ticker is unknown.
func (c *Chain) LoadCompanyByTicker(ticker string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Uninitialized {
		return false, ErrNotInitialized
	}
	rec := c.snapshot.LookupByTicker(ticker)
	if rec == nil {
		return false, nil
	}
	c.match = rec
	return true, nil
}

// ClearCompanyContext returns to general mode. The dataset snapshot and the
// history are kept.
func (c *Chain) ClearCompanyContext() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Uninitialized {
		return
	}
	c.company = nil
	c.match = nil
	c.state = Ready
}

func (c *Chain) Company() *models.Company {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.company == nil {
		return nil
	}
	cp := *c.company
	return &cp
}

func (c *Chain) Match() *models.DatasetRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.match
}

func (c *Chain) Snapshot() *dataset.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// History returns a copy of the committed messages.
func (c *Chain) History() []*schema.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*schema.Message, len(c.history))
	copy(out, c.history)
	return out
}

// RestoreHistory seeds the history from stored messages of an earlier
// session. Roles other than user and assistant are skipped.
func (c *Chain) RestoreHistory(msgs []models.StoredMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) > 0 || c.busy {
		return ErrHistoryNotEmpty
	}
	for _, m := range msgs {
		switch m.Role {
		case consts.RoleUser:
			c.history = append(c.history, schema.UserMessage(m.Content))
		case consts.RoleAssistant:
			c.history = append(c.history, schema.AssistantMessage(m.Content, nil))
		}
	}
	return nil
}

func (c *Chain) commit(user, assistant string) {
	c.mu.Lock()
	c.history = append(c.history, schema.UserMessage(user), schema.AssistantMessage(assistant, nil))
	c.mu.Unlock()

	if c.recorder != nil {
		c.recorder.RecordTurn(user, assistant)
	}
}

func (c *Chain) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := "-"
	if c.company != nil {
		name = c.company.Name
	}
	return fmt.Sprintf("chain(state=%s company=%s turns=%d)", c.state, name, len(c.history)/2)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
