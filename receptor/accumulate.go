package receptor

import (
	"slices"
	"sync"

	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/types"
)

// Accumulator concatenates every series into one whole series per position.
// It is safe to read from another goroutine while a pump is running.
type Accumulator[T any] struct {
	mu     sync.Mutex
	series [][]T
	cycles int
	done   bool
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator[T any]() *Accumulator[T] {
	return &Accumulator[T]{}
}

// Receive appends each array to its series. An empty list marks the end.
func (a *Accumulator[T]) Receive(arrays []demux.Array[T]) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(arrays) == 0 {
		a.done = true
		return nil
	}
	if a.done {
		return types.NewError(types.ErrInvalidState, "cycle received after end of stream")
	}
	if a.series == nil {
		a.series = make([][]T, len(arrays))
	}
	if len(arrays) != len(a.series) {
		return types.NewProtocolError("expected %d series, got %d", len(a.series), len(arrays))
	}
	for i, arr := range arrays {
		a.series[i] = append(a.series[i], arr.Data...)
	}
	a.cycles++
	return nil
}

// Whole returns a copy of the accumulated series.
func (a *Accumulator[T]) Whole() [][]T {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([][]T, len(a.series))
	for i, s := range a.series {
		out[i] = slices.Clone(s)
	}
	return out
}

// Done reports whether the terminal call has been received.
func (a *Accumulator[T]) Done() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// Cycles returns the number of non-terminal cycles received.
func (a *Accumulator[T]) Cycles() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cycles
}
