package buffer

import (
	"context"
	"slices"
)

// Producer is a pull-based source of batches.
//
// NextBatch may block (for example while awaiting a network message). An
// empty batch signals exhaustion, after which every further call must also
// return an empty batch.
type Producer[T any] interface {
	NextBatch(ctx context.Context) ([]T, error)
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc[T any] func(ctx context.Context) ([]T, error)

// NextBatch calls f.
func (f ProducerFunc[T]) NextBatch(ctx context.Context) ([]T, error) {
	return f(ctx)
}

// SliceProducer replays a fixed list of batches, then reports exhaustion.
// A zero-length batch in the list ends the stream early, the same way a live
// producer would.
type SliceProducer[T any] struct {
	batches [][]T
	next    int
	done    bool
	calls   int
}

// NewSliceProducer returns a producer yielding the given batches in order.
func NewSliceProducer[T any](batches ...[]T) *SliceProducer[T] {
	return &SliceProducer[T]{batches: batches}
}

// NextBatch returns the next batch or an empty batch once exhausted.
func (p *SliceProducer[T]) NextBatch(ctx context.Context) ([]T, error) {
	p.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.done || p.next >= len(p.batches) {
		p.done = true
		return nil, nil
	}
	b := p.batches[p.next]
	p.next++
	if len(b) == 0 {
		p.done = true
		return nil, nil
	}
	return slices.Clone(b), nil
}

// Calls returns how many times NextBatch has been invoked.
func (p *SliceProducer[T]) Calls() int { return p.calls }

// Rewind restarts the replay from the first batch.
func (p *SliceProducer[T]) Rewind() {
	p.next = 0
	p.done = false
}
