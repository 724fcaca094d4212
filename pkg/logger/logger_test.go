package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d00mkeeps/ibhackathon/config"
)

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.LogFormat = "json"
	cfg.Debug = true

	l := configure(logrus.New(), cfg, &buf)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	l.WithField("conversation_id", "c1").Debug("hello")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "c1", line["conversation_id"])
}
