package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSearcher struct {
	calls int
	err   error
}

func (s *countingSearcher) Search(_ context.Context, q string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "result for " + q, nil
}

func TestCachedSearcher(t *testing.T) {
	inner := &countingSearcher{}
	s := NewCachedSearcher(inner, time.Minute)

	for i := 0; i < 3; i++ {
		out, err := s.Search(context.Background(), "Acme stock news")
		require.NoError(t, err)
		assert.Equal(t, "result for Acme stock news", out)
	}
	_, _ = s.Search(context.Background(), "  acme STOCK news ")
	assert.Equal(t, 1, inner.calls)

	inner.err = errors.New("boom")
	_, err := s.Search(context.Background(), "other")
	assert.Error(t, err)
	_, err = s.Search(context.Background(), "other")
	assert.Error(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestCachedSearcherKeepsDisabled(t *testing.T) {
	_, ok := NewCachedSearcher(Disabled{}, time.Minute).(Disabled)
	assert.True(t, ok)
}

type countingQuoter struct{ calls int }

func (q *countingQuoter) Quote(_ context.Context, symbol string) (string, error) {
	q.calls++
	return "quote " + symbol, nil
}

func TestCachedQuoter(t *testing.T) {
	inner := &countingQuoter{}
	q := NewCachedQuoter(inner, time.Minute)
	for _, sym := range []string{"acme", "ACME", " Acme "} {
		_, err := q.Quote(context.Background(), sym)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, inner.calls)
}
