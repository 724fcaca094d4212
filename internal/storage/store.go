package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/d00mkeeps/ibhackathon/config"
	"github.com/d00mkeeps/ibhackathon/models"
	"github.com/d00mkeeps/ibhackathon/pkg/postgres"
	"github.com/d00mkeeps/ibhackathon/pkg/sqlite"
)

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000Z"

type Store struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

// Open connects to the configured database and ensures the schema exists.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
	case config.DriverSQLite:
		db, err = sqlite.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", config.ErrConfiguration, cfg.DatabaseDriver)
	}
	if err != nil {
		return nil, err
	}
	return New(ctx, db, cfg.DatabaseDriver)
}

// New wraps an open database. dialect is config.DriverSQLite or config.DriverPostgres.
func New(ctx context.Context, db *sql.DB, dialect string) (*Store, error) {
	s := &Store{db: db, dialect: dialect, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS conversations (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS companies (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    attributes TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_companies_conversation ON companies(conversation_id, created_at);

CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    role TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    seq INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE(conversation_id, seq)
);

CREATE TABLE IF NOT EXISTS dataset_companies (
    position INTEGER PRIMARY KEY,
    stock_ticker TEXT NOT NULL DEFAULT '',
    company_name TEXT NOT NULL,
    metrics TEXT NOT NULL DEFAULT '{}'
);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != config.DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) InsertConversation(ctx context.Context, name string) (*models.Conversation, error) {
	return s.insertConversation(ctx, s.db, name)
}

func (s *Store) InsertCompany(ctx context.Context, name, conversationID string, attrs map[string]any) (*models.Company, error) {
	return s.insertCompany(ctx, s.db, name, conversationID, attrs)
}

// CreateAnalysis inserts a conversation and the company it is about in one
// transaction, so a failed company insert leaves no empty conversation.
func (s *Store) CreateAnalysis(ctx context.Context, conversationName, companyName string, attrs map[string]any) (*models.Conversation, *models.Company, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin analysis tx: %w", err)
	}
	defer tx.Rollback()

	conv, err := s.insertConversation(ctx, tx, conversationName)
	if err != nil {
		return nil, nil, err
	}
	company, err := s.insertCompany(ctx, tx, companyName, conv.ID, attrs)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit analysis: %w", err)
	}
	return conv, company, nil
}

func (s *Store) insertConversation(ctx context.Context, db execer, name string) (*models.Conversation, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("conversation name is required")
	}
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: s.timestamp(),
	}
	_, err := db.ExecContext(ctx, s.rebind(`
INSERT INTO conversations (id, name, created_at) VALUES (?, ?, ?)
`), conv.ID, conv.Name, conv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return conv, nil
}

// GetConversation returns nil without error when id is unknown.
func (s *Store) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("conversation id is required")
	}
	row := s.db.QueryRowContext(ctx, s.rebind(`
SELECT id, name, created_at FROM conversations WHERE id = ? LIMIT 1
`), id)

	var conv models.Conversation
	if err := row.Scan(&conv.ID, &conv.Name, &conv.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conv, nil
}

// ListConversations returns conversations newest first.
func (s *Store) ListConversations(ctx context.Context, limit int) ([]models.Conversation, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT id, name, created_at
FROM conversations
ORDER BY created_at DESC, id DESC
LIMIT ?
`), limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	convs := []models.Conversation{}
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(&conv.ID, &conv.Name, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations rows: %w", err)
	}
	return convs, nil
}

func (s *Store) insertCompany(ctx context.Context, db execer, name, conversationID string, attrs map[string]any) (*models.Company, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("company name is required")
	}
	if strings.TrimSpace(conversationID) == "" {
		return nil, fmt.Errorf("conversation id is required")
	}
	attrJSON := []byte("{}")
	if len(attrs) > 0 {
		var err error
		if attrJSON, err = json.Marshal(attrs); err != nil {
			return nil, fmt.Errorf("encode company attributes: %w", err)
		}
	}
	company := &models.Company{
		ID:             uuid.NewString(),
		Name:           name,
		ConversationID: conversationID,
		CreatedAt:      s.timestamp(),
		Attributes:     attrs,
	}
	_, err := db.ExecContext(ctx, s.rebind(`
INSERT INTO companies (id, name, conversation_id, attributes, created_at) VALUES (?, ?, ?, ?, ?)
`), company.ID, company.Name, company.ConversationID, string(attrJSON), company.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert company: %w", err)
	}
	return company, nil
}

// GetCompanyByConversation returns the most recent company linked to the
// conversation, or nil when there is none.
func (s *Store) GetCompanyByConversation(ctx context.Context, conversationID string) (*models.Company, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, fmt.Errorf("conversation id is required")
	}
	row := s.db.QueryRowContext(ctx, s.rebind(`
SELECT id, name, conversation_id, attributes, created_at
FROM companies
WHERE conversation_id = ?
ORDER BY created_at DESC
LIMIT 1
`), conversationID)

	var (
		company  models.Company
		attrJSON string
	)
	if err := row.Scan(&company.ID, &company.Name, &company.ConversationID, &attrJSON, &company.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	if attrJSON != "" && attrJSON != "{}" {
		if err := json.Unmarshal([]byte(attrJSON), &company.Attributes); err != nil {
			return nil, fmt.Errorf("decode company attributes: %w", err)
		}
	}
	return &company, nil
}

// AppendMessages stores msgs after the conversation's last message, in order.
// Seq, ID and CreatedAt are assigned here.
func (s *Store) AppendMessages(ctx context.Context, conversationID string, msgs ...models.StoredMessage) error {
	if strings.TrimSpace(conversationID) == "" {
		return fmt.Errorf("conversation id is required")
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append messages: %w", err)
	}
	defer tx.Rollback()

	var last int
	if err := tx.QueryRowContext(ctx, s.rebind(`
SELECT COALESCE(MAX(seq), 0) FROM messages WHERE conversation_id = ?
`), conversationID).Scan(&last); err != nil {
		return fmt.Errorf("read last seq: %w", err)
	}

	created := s.timestamp()
	for i, msg := range msgs {
		if strings.TrimSpace(msg.Role) == "" {
			return fmt.Errorf("message role is required")
		}
		_, err := tx.ExecContext(ctx, s.rebind(`
INSERT INTO messages (id, conversation_id, role, content, seq, created_at) VALUES (?, ?, ?, ?, ?, ?)
`), uuid.NewString(), conversationID, msg.Role, msg.Content, last+i+1, created)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit messages: %w", err)
	}
	return nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]models.StoredMessage, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, fmt.Errorf("conversation id is required")
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT id, conversation_id, role, content, seq, created_at
FROM messages
WHERE conversation_id = ?
ORDER BY seq ASC
`), conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := []models.StoredMessage{}
	for rows.Next() {
		var msg models.StoredMessage
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.Seq, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages rows: %w", err)
	}
	return msgs, nil
}

// ReplaceDataset swaps the whole comparison dataset in one transaction,
// keeping the given row order.
func (s *Store) ReplaceDataset(ctx context.Context, rows []models.DatasetRow) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace dataset: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_companies`); err != nil {
		return 0, fmt.Errorf("clear dataset: %w", err)
	}
	for i, row := range rows {
		values := row.Values
		if values == nil {
			values = map[string]string{}
		}
		metrics, err := json.Marshal(values)
		if err != nil {
			return 0, fmt.Errorf("encode dataset row %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx, s.rebind(`
INSERT INTO dataset_companies (position, stock_ticker, company_name, metrics) VALUES (?, ?, ?, ?)
`), i+1, row.Ticker, row.Name, string(metrics))
		if err != nil {
			return 0, fmt.Errorf("insert dataset row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit dataset: %w", err)
	}
	return len(rows), nil
}

// ListDatasetRows returns every dataset row in load order.
func (s *Store) ListDatasetRows(ctx context.Context) ([]models.DatasetRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT stock_ticker, company_name, metrics
FROM dataset_companies
ORDER BY position ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list dataset rows: %w", err)
	}
	defer rows.Close()

	var out []models.DatasetRow
	for rows.Next() {
		var (
			row     models.DatasetRow
			metrics string
		)
		if err := rows.Scan(&row.Ticker, &row.Name, &metrics); err != nil {
			return nil, fmt.Errorf("scan dataset row: %w", err)
		}
		if err := json.Unmarshal([]byte(metrics), &row.Values); err != nil {
			return nil, fmt.Errorf("decode dataset row %s: %w", row.Name, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list dataset rows: %w", err)
	}
	return out, nil
}
