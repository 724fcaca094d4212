package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d00mkeeps/ibhackathon/config"
	"github.com/d00mkeeps/ibhackathon/internal/chain"
	"github.com/d00mkeeps/ibhackathon/internal/dataset"
	"github.com/d00mkeeps/ibhackathon/models"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfigWithRoot(dir)
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.DatabaseURL = filepath.Join(dir, "cli.db")
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "--config", writeConfig(t), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cara v"+version)
}

func TestDatasetImportAndSummary(t *testing.T) {
	cfgPath := writeConfig(t)
	csvPath := filepath.Join(t.TempDir(), "tuesday.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"Stock Ticker,Company Name,YTD Return Percent\nACME,Acme Corp,10%\nGLBX,Globex,20%\n"), 0o644))

	out, err := execute(t, "--config", cfgPath, "dataset", "import", "-y", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 companies")

	out, err = execute(t, "--config", cfgPath, "dataset", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "ACME, GLBX")
	assert.Contains(t, out, "avg 15%")

	out, err = execute(t, "--config", cfgPath, "conversations")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations yet.")
}

func TestConfigShowHidesSecrets(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "sk-very-secret")
	out, err := execute(t, "--config", writeConfig(t), "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "deepseek")
	assert.Contains(t, out, "configured")
	assert.NotContains(t, out, "sk-very-secret")
}

func TestConfigValidateWarnsWithoutKey(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	out, err := execute(t, "--config", writeConfig(t), "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "warning:")
}

func TestConfigSet(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := execute(t, "--config", cfgPath, "config", "set", "llm_model", "deepseek-reasoner")
	require.NoError(t, err)
	assert.Contains(t, out, "llm_model = deepseek-reasoner")

	_, err = execute(t, "--config", cfgPath, "config", "set", "allowed_origins", "http://a.test, http://b.test")
	require.NoError(t, err)
	_, err = execute(t, "--config", cfgPath, "config", "set", "llm_max_tokens", "2048")
	require.NoError(t, err)

	raw, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	var saved config.Config
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, "deepseek-reasoner", saved.LLMModel)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, saved.AllowedOrigins)
	assert.Equal(t, 2048, saved.LLMMaxTokens)

	_, err = execute(t, "--config", cfgPath, "config", "set", "no_such_key", "x")
	assert.ErrorContains(t, err, "unknown config key")

	_, err = execute(t, "--config", cfgPath, "config", "set", "llm_max_tokens", "lots")
	assert.ErrorContains(t, err, "invalid value")

	_, err = execute(t, "--config", cfgPath, "config", "set", "search_provider", "bing")
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

type echoModel struct{}

func (echoModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return nil, errors.New("not used")
}

func (echoModel) Stream(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	last := in[len(in)-1].Content
	return schema.StreamReaderFromArray([]*schema.Message{
		schema.AssistantMessage("echo: ", nil),
		schema.AssistantMessage(last, nil),
	}), nil
}

type snapSource struct{}

func (snapSource) Snapshot(context.Context) *dataset.Snapshot {
	rec := dataset.ParseRow(models.DatasetRow{Ticker: "ACME", Name: "Acme Corp"})
	return dataset.NewSnapshot([]models.DatasetRecord{rec})
}

func TestREPL(t *testing.T) {
	c := chain.New(echoModel{}, snapSource{})
	c.Init(context.Background())
	var out bytes.Buffer
	r := &repl{chain: c, out: &out}
	ctx := context.Background()

	assert.False(t, r.handle(ctx, "/company Acme Corp"))
	assert.Contains(t, out.String(), "Acme Corp (ACME)")

	assert.False(t, r.handle(ctx, "/ticker NOPE"))
	assert.Contains(t, out.String(), `Ticker "NOPE" not in the comparison dataset.`)

	assert.False(t, r.handle(ctx, "   "))
	assert.Contains(t, out.String(), "Message cannot be empty.")

	assert.False(t, r.handle(ctx, "how are margins?"))
	assert.Contains(t, out.String(), "echo: how are margins?")
	assert.Len(t, c.History(), 2)

	assert.False(t, r.handle(ctx, "/clear"))
	assert.Equal(t, chain.Ready, c.State())

	assert.True(t, r.handle(ctx, "/quit"))
}

func TestStreamReplShowsRetryHint(t *testing.T) {
	sr := schema.StreamReaderFromArray([]*models.Event{
		models.ContentEvent("partial"),
		models.RateLimitEvent(60),
	})
	var out bytes.Buffer
	reply, err := streamReply(&out, sr)
	require.NoError(t, err)
	assert.Equal(t, "partial", reply)
	assert.Contains(t, out.String(), "Rate limit exceeded. Please try again later. (retry in 60s)")
}
