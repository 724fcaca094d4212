package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/d00mkeeps/ibhackathon/consts"
	"github.com/d00mkeeps/ibhackathon/models"
)

// MessageAppender is the part of Store a TurnRecorder writes through.
type MessageAppender interface {
	AppendMessages(ctx context.Context, conversationID string, msgs ...models.StoredMessage) error
}

type turn struct {
	user      string
	assistant string
}

// TurnRecorder persists committed turns of one conversation in the
// background, in commit order. Write failures are logged, never returned.
type TurnRecorder struct {
	store          MessageAppender
	conversationID string
	log            *logrus.Entry
	timeout        time.Duration

	mu     sync.Mutex
	closed bool
	events chan turn
	wg     sync.WaitGroup
}

func NewTurnRecorder(store MessageAppender, conversationID string, log *logrus.Entry) (*TurnRecorder, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if conversationID == "" {
		return nil, errors.New("conversation id is required")
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	r := &TurnRecorder{
		store:          store,
		conversationID: conversationID,
		log:            log.WithField("conversation_id", conversationID),
		timeout:        10 * time.Second,
		events:         make(chan turn, 64),
	}
	r.wg.Add(1)
	go r.loop()
	return r, nil
}

func (r *TurnRecorder) loop() {
	defer r.wg.Done()
	for t := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.store.AppendMessages(ctx, r.conversationID,
			models.StoredMessage{Role: consts.RoleUser, Content: t.user},
			models.StoredMessage{Role: consts.RoleAssistant, Content: t.assistant},
		)
		cancel()
		if err != nil {
			r.log.WithError(err).Error("persist turn")
		}
	}
}

// RecordTurn queues one committed user/assistant pair.
func (r *TurnRecorder) RecordTurn(user, assistant string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.log.Warn("turn recorded after close, dropping")
		return
	}
	r.events <- turn{user: user, assistant: assistant}
}

// Close flushes queued turns and stops the writer.
func (r *TurnRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.events)
	r.mu.Unlock()
	r.wg.Wait()
}
