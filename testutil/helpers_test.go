package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listSource struct {
	batches [][]int
	err     error
}

func (s *listSource) NextBatch(context.Context) ([]int, error) {
	if len(s.batches) == 0 {
		return nil, s.err
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}

func TestDrain(t *testing.T) {
	out, n, err := Drain[int](TestContext(t), &listSource{batches: [][]int{{1, 2}, {3}}})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, out)
	assert.Equal(t, 2, n)

	boom := errors.New("boom")
	out, n, err = Drain[int](TestContext(t), &listSource{batches: [][]int{{1}}, err: boom})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1}, out)
	assert.Equal(t, 1, n)
}

func TestContexts(t *testing.T) {
	assert.ErrorIs(t, CancelledContext().Err(), context.Canceled)

	ctx := TestContextWithTimeout(t, time.Millisecond)
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}

func TestWaitHelpers(t *testing.T) {
	start := time.Now()
	assert.True(t, WaitFor(func() bool { return time.Since(start) > 20*time.Millisecond }, time.Second))
	assert.False(t, WaitFor(func() bool { return false }, 20*time.Millisecond))

	ch := make(chan int, 1)
	ch <- 7
	v, ok := WaitForChannel(ch, time.Second)
	assert.True(t, ok)
	assert.Equal(t, 7, v)
	_, ok = WaitForChannel(ch, 10*time.Millisecond)
	assert.False(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	s := MustJSON(map[string]int{"frame": 20})
	assert.JSONEq(t, `{"frame":20}`, s)
	assert.Equal(t, map[string]int{"frame": 20}, MustParseJSON[map[string]int](s))
	assert.Panics(t, func() { MustParseJSON[int]("nope") })
}
