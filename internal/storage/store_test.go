package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d00mkeeps/ibhackathon/config"
	"github.com/d00mkeeps/ibhackathon/consts"
	"github.com/d00mkeeps/ibhackathon/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.DatabaseURL = filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConversationsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 8, 19, 10, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return at }
		_, err := s.InsertConversation(ctx, name)
		require.NoError(t, err)
	}

	convs, err := s.ListConversations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, convs, 3)
	assert.Equal(t, "third", convs[0].Name)
	assert.Equal(t, "first", convs[2].Name)
}

func TestGetMissingRowsReturnNil(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	conv, err := s.GetConversation(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, conv)

	company, err := s.GetCompanyByConversation(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, company)
}

func TestCompanyLinkedToConversation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	conv, err := s.InsertConversation(ctx, "Acme Corp analysis - 19/08/2025")
	require.NoError(t, err)
	_, err = s.InsertCompany(ctx, "Acme Corp", conv.ID, map[string]any{"sector": "tech"})
	require.NoError(t, err)

	got, err := s.GetCompanyByConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme Corp", got.Name)
	assert.Equal(t, conv.ID, got.ConversationID)
	assert.Equal(t, "tech", got.Attributes["sector"])
}

func TestAppendMessagesKeepsOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	conv, err := s.InsertConversation(ctx, "chat")
	require.NoError(t, err)

	require.NoError(t, s.AppendMessages(ctx, conv.ID,
		models.StoredMessage{Role: consts.RoleUser, Content: "hi"},
		models.StoredMessage{Role: consts.RoleAssistant, Content: "hello"},
	))
	require.NoError(t, s.AppendMessages(ctx, conv.ID,
		models.StoredMessage{Role: consts.RoleUser, Content: "again"},
	))

	msgs, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{msgs[0].Seq, msgs[1].Seq, msgs[2].Seq})
	assert.Equal(t, "hello", msgs[1].Content)
	assert.Equal(t, consts.RoleUser, msgs[2].Role)
}

func TestReplaceDatasetKeepsLoadOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.ReplaceDataset(ctx, []models.DatasetRow{{Ticker: "OLD", Name: "Old Co"}})
	require.NoError(t, err)

	n, err := s.ReplaceDataset(ctx, []models.DatasetRow{
		{Ticker: "ZZZ", Name: "Zed", Values: map[string]string{"ytd_return_percent": "12.5"}},
		{Ticker: "AAA", Name: "Aye"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := s.ListDatasetRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ZZZ", rows[0].Ticker)
	assert.Equal(t, "12.5", rows[0].Values["ytd_return_percent"])
	assert.Equal(t, "AAA", rows[1].Ticker)
}

func TestRebindPostgres(t *testing.T) {
	s := &Store{dialect: config.DriverPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", s.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	s.dialect = config.DriverSQLite
	assert.Equal(t, "a = ?", s.rebind("a = ?"))
}

func TestCreateAnalysisIsAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	conv, company, err := s.CreateAnalysis(ctx, "Acme Corp analysis - 19/08/2025", "Acme Corp", nil)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, company.ConversationID)

	_, _, err = s.CreateAnalysis(ctx, "orphan analysis - 19/08/2025", " ", nil)
	require.Error(t, err)

	convs, err := s.ListConversations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, conv.ID, convs[0].ID)
}
