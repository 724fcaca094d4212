package chain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"
	"golang.org/x/sync/errgroup"

	"github.com/d00mkeeps/ibhackathon/consts"
	"github.com/d00mkeeps/ibhackathon/internal/dataset"
	"github.com/d00mkeeps/ibhackathon/internal/llm"
	"github.com/d00mkeeps/ibhackathon/internal/prompt"
	"github.com/d00mkeeps/ibhackathon/models"
)

const processingFailed = "Sorry, I couldn't process that message. Please try again."

// Fragments that may queue ahead of the consumer.
const streamBuffer = 16

// turn is the state one reply is built from, captured when it starts.
type turn struct {
	text     string
	company  *models.Company
	match    *models.DatasetRecord
	snapshot *dataset.Snapshot
	history  []*schema.Message
}

// ProcessMessage starts a reply to text and returns its event stream:
// content fragments in order followed by one complete event, or a single
// error event. The user message and the reply are added to the history only
// after the model finishes successfully. Closing the reader early abandons
// the turn.
func (c *Chain) ProcessMessage(ctx context.Context, text string) (*schema.StreamReader[*models.Event], error) {
	if isBlank(text) {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state == Uninitialized {
		c.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if c.busy {
		c.mu.Unlock()
		return nil, ErrTurnInProgress
	}
	c.busy = true
	t := turn{
		text:     text,
		company:  c.company,
		match:    c.match,
		snapshot: c.snapshot,
		history:  make([]*schema.Message, len(c.history)),
	}
	copy(t.history, c.history)
	c.mu.Unlock()

	sr, sw := schema.Pipe[*models.Event](streamBuffer)
	go c.produce(ctx, t, sw)
	return sr, nil
}

func (c *Chain) produce(ctx context.Context, t turn, sw *schema.StreamWriter[*models.Event]) {
	defer sw.Close()
	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			c.fail(ctx, sw, fmt.Errorf("panic: %v", r))
		}
	}()

	log := c.log
	if t.company != nil {
		log = log.WithField("company", t.company.Name)
	}

	msgs, err := c.builder.Build(ctx, prompt.Input{
		Company:  t.company,
		Match:    t.match,
		Snapshot: t.snapshot,
		Search:   c.lookup(ctx, t.company, t.match),
		History:  t.history,
		Message:  t.text,
	})
	if err != nil {
		c.fail(ctx, sw, err)
		return
	}

	stream, err := c.model.Stream(ctx, msgs)
	if err != nil {
		c.fail(ctx, sw, err)
		return
	}
	defer stream.Close()

	var reply strings.Builder
	fragments := 0
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.fail(ctx, sw, err)
			return
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		reply.WriteString(chunk.Content)
		fragments++
		if closed := sw.Send(models.ContentEvent(chunk.Content), nil); closed {
			log.WithError(errAbandonedByCaller).Debug("turn abandoned")
			return
		}
	}
	if err := ctx.Err(); err != nil {
		log.WithError(err).Debug("turn cancelled")
		return
	}

	c.commit(t.text, reply.String())
	log.WithField("fragments", fragments).Debug("turn committed")
	sw.Send(models.CompleteEvent(), nil)
}

// lookup gathers the live search snippet and, when enabled, a quote line.
// Failures only change the placeholder text.
func (c *Chain) lookup(ctx context.Context, company *models.Company, match *models.DatasetRecord) prompt.SearchResult {
	var res prompt.SearchResult
	if company == nil || isBlank(company.Name) {
		return res
	}

	var g errgroup.Group
	g.Go(func() error {
		res.Snippet, res.Err = c.searcher.Search(ctx, prompt.SearchQuery(company.Name))
		if res.Err != nil {
			c.log.WithError(res.Err).WithField("company", company.Name).Warn("search unavailable")
		}
		return nil
	})
	if c.quoter != nil && match != nil && match.Ticker != "" {
		g.Go(func() error {
			q, err := c.quoter.Quote(ctx, match.Ticker)
			if err != nil {
				c.log.WithError(err).WithField("ticker", match.Ticker).Debug("quote unavailable")
				return nil
			}
			res.Quote = q
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func (c *Chain) fail(ctx context.Context, sw *schema.StreamWriter[*models.Event], err error) {
	if ctx.Err() != nil {
		c.log.WithError(err).Debug("turn cancelled")
		return
	}
	err = llm.Classify(err)
	var rl *llm.RateLimitError
	if errors.As(err, &rl) {
		c.log.WithError(err).Warn("model rate limited")
		sw.Send(models.RateLimitEvent(rl.RetryAfterSeconds()), nil)
		return
	}
	c.log.WithError(err).Error("turn failed")
	sw.Send(models.ErrorEvent(consts.ErrCodeProcessing, processingFailed), nil)
}
