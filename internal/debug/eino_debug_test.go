package debug

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d00mkeeps/ibhackathon/config"
)

func TestDisabledDebuggerDoesNothing(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.EinoDebugEnabled = false
	d := NewEinoDebugger(cfg, nil)
	d.init = func(context.Context) error { t.Fatal("init must not run"); return nil }

	require.NoError(t, d.Initialize(context.Background()))
	assert.Empty(t, d.GetDebugURL())
}

func TestEnabledDebugger(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.EinoDebugEnabled = true
	cfg.EinoDebugPort = 52600
	d := NewEinoDebugger(cfg, nil)

	calls := 0
	d.init = func(context.Context) error { calls++; return nil }
	require.NoError(t, d.Initialize(context.Background()))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "http://localhost:52600", d.GetDebugURL())

	d.init = func(context.Context) error { return errors.New("port in use") }
	assert.ErrorContains(t, d.Initialize(context.Background()), "port in use")
}
