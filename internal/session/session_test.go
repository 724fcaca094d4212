package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d00mkeeps/ibhackathon/consts"
	"github.com/d00mkeeps/ibhackathon/internal/chain"
	"github.com/d00mkeeps/ibhackathon/internal/dataset"
	"github.com/d00mkeeps/ibhackathon/models"
)

type fakeConn struct {
	in      chan []byte
	written chan string
	done    chan struct{}

	mu        sync.Mutex
	writes    int
	failAfter int
	closeCode int
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:        make(chan []byte, 8),
		written:   make(chan string, 64),
		done:      make(chan struct{}),
		failAfter: -1,
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case b, ok := <-c.in:
		if !ok {
			return nil, io.EOF
		}
		return b, nil
	case <-c.done:
		return nil, errors.New("use of closed network connection")
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAfter >= 0 && c.writes >= c.failAfter {
		return errors.New("broken pipe")
	}
	c.writes++
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.written <- string(b)
	return nil
}

func (c *fakeConn) Close(code int, _ string) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closeCode = code
		c.mu.Unlock()
		close(c.done)
	})
	return nil
}

func (c *fakeConn) code() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode
}

func (c *fakeConn) send(s string) { c.in <- []byte(s) }

func (c *fakeConn) next(t *testing.T) string {
	t.Helper()
	select {
	case s := <-c.written:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outbound event")
		return ""
	}
}

type fakeModel struct {
	chunks []string
	err    error

	mu     sync.Mutex
	inputs [][]*schema.Message
}

func (m *fakeModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return nil, errors.New("not used")
}

func (m *fakeModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	m.mu.Unlock()

	sr, sw := schema.Pipe[*schema.Message](len(m.chunks) + 1)
	go func() {
		defer sw.Close()
		for _, c := range m.chunks {
			sw.Send(schema.AssistantMessage(c, nil), nil)
		}
		if m.err != nil {
			sw.Send(nil, m.err)
		}
	}()
	return sr, nil
}

type staticSource struct{ snap *dataset.Snapshot }

func (s staticSource) Snapshot(context.Context) *dataset.Snapshot { return s.snap }

type factory struct{ model *fakeModel }

func (f factory) NewChain(opts ...chain.Option) *chain.Chain {
	rec := dataset.ParseRow(models.DatasetRow{Ticker: "ACME", Name: "Acme Corp"})
	return chain.New(f.model, staticSource{snap: dataset.NewSnapshot([]models.DatasetRecord{rec})}, opts...)
}

type fakeStore struct {
	mu       sync.Mutex
	company  *models.Company
	messages []models.StoredMessage
	fail     error
	gate     chan struct{}
}

func (s *fakeStore) AppendMessages(_ context.Context, _ string, msgs ...models.StoredMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
	return nil
}

func (s *fakeStore) GetCompanyByConversation(context.Context, string) (*models.Company, error) {
	if s.gate != nil {
		<-s.gate
	}
	return s.company, s.fail
}

func (s *fakeStore) ListMessages(context.Context, string) ([]models.StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	return append([]models.StoredMessage(nil), s.messages...), nil
}

func serve(t *testing.T, o *Orchestrator, conn *fakeConn, id string) <-chan error {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- o.Serve(context.Background(), conn, id) }()
	require.JSONEq(t, `{"type":"connection_status","data":"connected"}`, conn.next(t))
	return errc
}

func wait(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
		return nil
	}
}

func TestHeartbeatAndMessage(t *testing.T) {
	m := &fakeModel{chunks: []string{"Hello", " world"}}
	conn := newFakeConn()
	errc := serve(t, NewOrchestrator(factory{model: m}, nil, nil), conn, "")

	conn.send(`{"type":"heartbeat","timestamp":1724075400123}`)
	assert.JSONEq(t, `{"type":"heartbeat_ack","timestamp":1724075400123}`, conn.next(t))

	conn.send(`{"type":"message","message":"hi"}`)
	assert.JSONEq(t, `{"type":"content","data":"Hello"}`, conn.next(t))
	assert.JSONEq(t, `{"type":"content","data":" world"}`, conn.next(t))
	assert.JSONEq(t, `{"type":"complete"}`, conn.next(t))

	conn.send(`{"type":"heartbeat","timestamp":"2025-08-19T14:30:00Z"}`)
	assert.JSONEq(t, `{"type":"heartbeat_ack","timestamp":"2025-08-19T14:30:00Z"}`, conn.next(t))

	conn.send(`{"type":"heartbeat"}`)
	assert.JSONEq(t, `{"type":"heartbeat_ack","timestamp":null}`, conn.next(t))

	close(conn.in)
	require.NoError(t, wait(t, errc))
	assert.Equal(t, CloseNormal, conn.code())
}

func TestInvalidInputKeepsSessionOpen(t *testing.T) {
	m := &fakeModel{chunks: []string{"ok"}}
	conn := newFakeConn()
	errc := serve(t, NewOrchestrator(factory{model: m}, nil, nil), conn, "")

	conn.send(`{"type":"message","message":"   "}`)
	assert.JSONEq(t, `{"type":"error","data":{"code":"validation_error","message":"Message cannot be empty"}}`, conn.next(t))

	conn.send(`not json`)
	assert.JSONEq(t, `{"type":"error","data":{"code":"validation_error","message":"Invalid message format"}}`, conn.next(t))

	conn.send(`{"type":"message","message":"real question"}`)
	assert.JSONEq(t, `{"type":"content","data":"ok"}`, conn.next(t))
	assert.JSONEq(t, `{"type":"complete"}`, conn.next(t))

	close(conn.in)
	require.NoError(t, wait(t, errc))
	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Len(t, m.inputs, 1)
}

func TestRateLimitForwarded(t *testing.T) {
	m := &fakeModel{chunks: []string{"par"}, err: errors.New("429 Too Many Requests")}
	conn := newFakeConn()
	errc := serve(t, NewOrchestrator(factory{model: m}, nil, nil), conn, "")

	conn.send(`{"type":"message","message":"question"}`)
	assert.JSONEq(t, `{"type":"content","data":"par"}`, conn.next(t))
	assert.JSONEq(t, `{"type":"error","data":{"code":"rate_limit","message":"Rate limit exceeded. Please try again later.","retry_after":60}}`, conn.next(t))

	conn.send(`{"type":"heartbeat","timestamp":1}`)
	assert.JSONEq(t, `{"type":"heartbeat_ack","timestamp":1}`, conn.next(t))

	close(conn.in)
	require.NoError(t, wait(t, errc))
}

func TestRestoresStoredConversation(t *testing.T) {
	m := &fakeModel{chunks: []string{"fine"}}
	store := &fakeStore{
		company: &models.Company{ID: "co-1", Name: "Acme Corp", ConversationID: "conv-1"},
		messages: []models.StoredMessage{
			{Role: consts.RoleUser, Content: "earlier question"},
			{Role: consts.RoleAssistant, Content: "earlier answer"},
		},
	}
	conn := newFakeConn()
	errc := serve(t, NewOrchestrator(factory{model: m}, store, nil), conn, "conv-1")

	conn.send(`{"type":"message","message":"and now?"}`)
	assert.JSONEq(t, `{"type":"content","data":"fine"}`, conn.next(t))
	assert.JSONEq(t, `{"type":"complete"}`, conn.next(t))
	close(conn.in)
	require.NoError(t, wait(t, errc))

	m.mu.Lock()
	input := m.inputs[0]
	m.mu.Unlock()
	require.Len(t, input, 4)
	assert.Contains(t, input[0].Content, "- Dataset Match: Acme Corp")
	assert.Equal(t, "earlier question", input[1].Content)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.messages, 4)
	assert.Equal(t, "and now?", store.messages[2].Content)
	assert.Equal(t, "fine", store.messages[3].Content)
}

func TestConnectionStatusPrecedesRestore(t *testing.T) {
	m := &fakeModel{chunks: []string{"ok"}}
	store := &fakeStore{
		company: &models.Company{ID: "co-1", Name: "Acme Corp", ConversationID: "conv-1"},
		gate:    make(chan struct{}),
	}
	conn := newFakeConn()
	// serve only returns once connection_status has been written, which
	// happens while the company lookup is still blocked.
	errc := serve(t, NewOrchestrator(factory{model: m}, store, nil), conn, "conv-1")
	close(store.gate)

	conn.send(`{"type":"message","message":"hello"}`)
	assert.JSONEq(t, `{"type":"content","data":"ok"}`, conn.next(t))
	assert.JSONEq(t, `{"type":"complete"}`, conn.next(t))
	close(conn.in)
	require.NoError(t, wait(t, errc))

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Contains(t, m.inputs[0][0].Content, "Acme Corp")
}

func TestStoreFailureFallsBackToGeneralMode(t *testing.T) {
	m := &fakeModel{chunks: []string{"ok"}}
	store := &fakeStore{fail: errors.New("db down")}
	conn := newFakeConn()
	errc := serve(t, NewOrchestrator(factory{model: m}, store, nil), conn, "conv-2")

	conn.send(`{"type":"message","message":"hello"}`)
	assert.JSONEq(t, `{"type":"content","data":"ok"}`, conn.next(t))
	assert.JSONEq(t, `{"type":"complete"}`, conn.next(t))
	close(conn.in)
	require.NoError(t, wait(t, errc))

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Len(t, m.inputs[0], 2)
}

func TestWriteFailureClosesWithInternalError(t *testing.T) {
	m := &fakeModel{chunks: []string{"never delivered"}}
	conn := newFakeConn()
	conn.failAfter = 1
	errc := serve(t, NewOrchestrator(factory{model: m}, nil, nil), conn, "")

	conn.send(`{"type":"message","message":"hello"}`)
	err := wait(t, errc)
	require.Error(t, err)
	assert.Equal(t, CloseInternalError, conn.code())
}

func TestContextCancelEndsSession(t *testing.T) {
	conn := newFakeConn()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- NewOrchestrator(factory{model: &fakeModel{}}, nil, nil).Serve(ctx, conn, "")
	}()
	require.JSONEq(t, `{"type":"connection_status","data":"connected"}`, conn.next(t))

	cancel()
	require.NoError(t, wait(t, errc))
	assert.Equal(t, CloseGoingAway, conn.code())
}
