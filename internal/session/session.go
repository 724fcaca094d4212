package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/d00mkeeps/ibhackathon/consts"
	"github.com/d00mkeeps/ibhackathon/internal/chain"
	"github.com/d00mkeeps/ibhackathon/internal/storage"
	"github.com/d00mkeeps/ibhackathon/models"
)

// Close codes used on the duplex connection.
const (
	CloseNormal        = 1000
	CloseGoingAway     = 1001
	CloseInternalError = 1011
)

const (
	msgEmpty     = "Message cannot be empty"
	msgMalformed = "Invalid message format"
	msgTurn      = "Sorry, I couldn't process that message. Please try again."
)

// errPeerClosed ends the session group when the client goes away, which
// cancels any reply still streaming.
var errPeerClosed = errors.New("peer closed")

// Conn is one duplex client connection. ReadMessage returns io.EOF once the
// peer has closed normally. Close must be safe to call more than once.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close(code int, reason string) error
}

// ChainFactory builds a fresh chain for one session.
type ChainFactory interface {
	NewChain(opts ...chain.Option) *chain.Chain
}

// Store is what a session reads and writes for a stored conversation.
type Store interface {
	storage.MessageAppender
	GetCompanyByConversation(ctx context.Context, conversationID string) (*models.Company, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.StoredMessage, error)
}

type Orchestrator struct {
	chains ChainFactory
	store  Store
	log    *logrus.Entry
}

func NewOrchestrator(chains ChainFactory, store Store, log *logrus.Entry) *Orchestrator {
	if log == nil {
		log = logrus.WithField("component", "session")
	}
	return &Orchestrator{chains: chains, store: store, log: log}
}

// session is the state of one live connection.
type session struct {
	conn  Conn
	chain *chain.Chain
	log   *logrus.Entry

	writeMu sync.Mutex
}

// Serve runs one session until the client disconnects or ctx is done. It
// always closes conn.
func (o *Orchestrator) Serve(ctx context.Context, conn Conn, conversationID string) error {
	log := o.log
	if conversationID != "" {
		log = log.WithField("conversation_id", conversationID)
	}

	var opts []chain.Option
	opts = append(opts, chain.WithLogger(log.WithField("component", "chain")))
	if conversationID != "" && o.store != nil {
		rec, err := storage.NewTurnRecorder(o.store, conversationID, log)
		if err != nil {
			log.WithError(err).Warn("turn persistence disabled")
		} else {
			defer rec.Close()
			opts = append(opts, chain.WithRecorder(rec))
		}
	}

	s := &session{conn: conn, chain: o.chains.NewChain(opts...), log: log}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close(CloseGoingAway, "server shutting down")
	})
	defer stop()

	// The client hears back before the dataset and stored turns are loaded.
	// Its first message is not read until both are done.
	if err := s.write(models.ConnectionStatusEvent()); err != nil {
		_ = conn.Close(CloseInternalError, "write failed")
		return fmt.Errorf("send connection status: %w", err)
	}
	s.chain.Init(ctx)
	o.restore(ctx, s, conversationID)
	log.Info("session started")

	err := s.run(ctx)
	if err != nil {
		log.WithError(err).Error("session failed")
		_ = s.write(models.ErrorEvent(consts.ErrCodeProcessing, "Connection error: "+err.Error()))
		_ = conn.Close(CloseInternalError, "internal error")
		return err
	}
	log.Info("session closed")
	_ = conn.Close(CloseNormal, "")
	return nil
}

// restore loads the stored company and earlier turns. Failures leave the
// session in general mode with an empty history.
func (o *Orchestrator) restore(ctx context.Context, s *session, conversationID string) {
	if conversationID == "" || o.store == nil {
		return
	}

	msgs, err := o.store.ListMessages(ctx, conversationID)
	if err != nil {
		s.log.WithError(err).Warn("load stored messages")
	} else if len(msgs) > 0 {
		if err := s.chain.RestoreHistory(msgs); err != nil {
			s.log.WithError(err).Warn("restore history")
		}
	}

	company, err := o.store.GetCompanyByConversation(ctx, conversationID)
	switch {
	case err != nil:
		s.log.WithError(err).Warn("load company context")
	case company == nil:
		s.log.Info("no company stored for conversation")
	default:
		if err := s.chain.LoadCompanyContext(*company); err != nil {
			s.log.WithError(err).Warn("load company context")
		}
	}
}

func (s *session) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	inbox := make(chan string, 8)

	g.Go(func() error {
		defer close(inbox)
		return s.readLoop(gctx, inbox)
	})
	g.Go(func() error {
		for text := range inbox {
			if err := s.turn(gctx, text); err != nil {
				// Unblocks the reader.
				_ = s.conn.Close(CloseInternalError, "write failed")
				return err
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, errPeerClosed) {
		return err
	}
	return nil
}

func (s *session) readLoop(ctx context.Context, inbox chan<- string) error {
	for {
		raw, err := s.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return errPeerClosed
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var ev models.ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			s.log.WithError(err).Debug("malformed client event")
			if err := s.write(models.ErrorEvent(consts.ErrCodeValidation, msgMalformed)); err != nil {
				return err
			}
			continue
		}

		switch ev.Type {
		case consts.EventHeartbeat:
			if err := s.write(models.HeartbeatAckEvent(ev.Timestamp)); err != nil {
				return err
			}
		case consts.EventMessage:
			if strings.TrimSpace(ev.Message) == "" {
				if err := s.write(models.ErrorEvent(consts.ErrCodeValidation, msgEmpty)); err != nil {
					return err
				}
				continue
			}
			select {
			case inbox <- ev.Message:
			case <-ctx.Done():
				return nil
			}
		default:
			s.log.WithField("type", ev.Type).Debug("ignoring client event")
		}
	}
}

// turn streams one reply to the client. Only transport failures are
// returned; chain failures become error events.
func (s *session) turn(ctx context.Context, text string) error {
	sr, err := s.chain.ProcessMessage(ctx, text)
	switch {
	case errors.Is(err, chain.ErrEmptyMessage):
		return s.write(models.ErrorEvent(consts.ErrCodeValidation, msgEmpty))
	case err != nil:
		s.log.WithError(err).Error("start turn")
		return s.write(models.ErrorEvent(consts.ErrCodeProcessing, msgTurn))
	}
	return s.forward(sr)
}

func (s *session) forward(sr *schema.StreamReader[*models.Event]) error {
	defer sr.Close()
	for {
		ev, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			s.log.WithError(err).Error("turn stream")
			return s.write(models.ErrorEvent(consts.ErrCodeProcessing, msgTurn))
		}
		if err := s.write(ev); err != nil {
			return err
		}
	}
}

func (s *session) write(ev *models.Event) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(ev); err != nil {
		return fmt.Errorf("write %s: %w", ev.Type, err)
	}
	return nil
}
