package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d00mkeeps/ibhackathon/consts"
)

func TestTurnRecorderFlushesOnClose(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	conv, err := s.InsertConversation(ctx, "chat")
	require.NoError(t, err)

	rec, err := NewTurnRecorder(s, conv.ID, nil)
	require.NoError(t, err)
	rec.RecordTurn("q1", "a1")
	rec.RecordTurn("q2", "a2")
	rec.Close()

	msgs, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, consts.RoleUser, msgs[0].Role)
	assert.Equal(t, "a1", msgs[1].Content)
	assert.Equal(t, "q2", msgs[2].Content)
	assert.Equal(t, consts.RoleAssistant, msgs[3].Role)
}

func TestTurnRecorderRequiresConversation(t *testing.T) {
	_, err := NewTurnRecorder(openTestStore(t), "", nil)
	assert.Error(t, err)
}
