package buffer

import (
	"context"
	"fmt"
	"slices"

	"github.com/BaSui01/seriesflow/types"
	"go.uber.org/zap"
)

// Observer receives buffer events, typically for metrics.
type Observer interface {
	BatchPulled(values int)
	RingGrown(capacity int)
	Exhausted()
	Delivered(values int)
}

// Stats is a snapshot of a BatchBuffer.
type Stats struct {
	Buffered  int  `json:"buffered"`
	Batches   int  `json:"batches"`
	Capacity  int  `json:"capacity"`
	Growths   int  `json:"growths"`
	Pulls     int  `json:"pulls"`
	Delivered int  `json:"delivered"`
	Exhausted bool `json:"exhausted"`
}

// Option configures a BatchBuffer.
type Option func(*options)

type options struct {
	capacity int
	factor   float64
	logger   *zap.Logger
	observer Observer
}

// WithInitialCapacity sets the initial ring capacity.
func WithInitialCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithGrowthFactor sets the ring growth factor (must be > 1).
func WithGrowthFactor(f float64) Option {
	return func(o *options) { o.factor = f }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver registers an event observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// BatchBuffer turns a batch producer into a pull interface of exact-size
// frames. It owns its ring; the producer is only referenced.
//
// BatchBuffer is not safe for concurrent use.
type BatchBuffer[T any] struct {
	ring      *Ring[[]T]
	producer  Producer[T]
	buffered  int
	exhausted bool

	pulls     int
	delivered int

	logger   *zap.Logger
	observer Observer
}

// NewBatchBuffer creates a buffer pulling from producer.
func NewBatchBuffer[T any](producer Producer[T], opts ...Option) (*BatchBuffer[T], error) {
	b := &BatchBuffer[T]{}
	if err := b.Init(producer, opts...); err != nil {
		return nil, err
	}
	return b, nil
}

// Init prepares a zero BatchBuffer in place. Sessions that hold the buffer by
// value call this instead of NewBatchBuffer.
func (b *BatchBuffer[T]) Init(producer Producer[T], opts ...Option) error {
	if producer == nil {
		return types.NewError(types.ErrInvalidArgument, "producer is nil")
	}
	o := options{
		capacity: DefaultInitialCapacity,
		factor:   DefaultGrowthFactor,
	}
	for _, opt := range opts {
		opt(&o)
	}
	ring, err := NewRing[[]T](o.capacity, o.factor)
	if err != nil {
		return err
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	*b = BatchBuffer[T]{
		ring:     ring,
		producer: producer,
		logger:   o.logger.With(zap.String("component", "batch_buffer")),
		observer: o.observer,
	}
	return nil
}

// Get returns up to n of the oldest values and removes them from the buffer.
// The result is shorter than n only after the producer is exhausted; an empty
// result means nothing is left. Get(ctx, 0) never calls the producer.
func (b *BatchBuffer[T]) Get(ctx context.Context, n int) ([]T, error) {
	if b.ring == nil {
		return nil, types.NewError(types.ErrInvalidState, "batch buffer not initialized")
	}
	if n < 0 {
		return nil, types.Errorf(types.ErrInvalidArgument, "negative frame size %d", n)
	}
	if n == 0 {
		return []T{}, nil
	}

	for !b.exhausted && b.buffered < n {
		batch, err := b.producer.NextBatch(ctx)
		if err != nil {
			return nil, fmt.Errorf("pull batch: %w", err)
		}
		b.pulls++
		if len(batch) == 0 {
			b.exhausted = true
			b.logger.Debug("producer exhausted", zap.Int("buffered", b.buffered))
			if b.observer != nil {
				b.observer.Exhausted()
			}
			continue
		}
		b.add(batch)
	}

	if b.exhausted && b.buffered < n {
		return b.drain(), nil
	}
	return b.extract(n), nil
}

// add buffers a private copy of batch.
func (b *BatchBuffer[T]) add(batch []T) {
	before := b.ring.Cap()
	b.ring.Enqueue(slices.Clone(batch))
	b.buffered += len(batch)

	if b.observer != nil {
		b.observer.BatchPulled(len(batch))
	}
	if after := b.ring.Cap(); after != before {
		b.logger.Debug("ring grown", zap.Int("from", before), zap.Int("to", after))
		if b.observer != nil {
			b.observer.RingGrown(after)
		}
	}
}

// extract removes exactly n values; the caller guarantees buffered >= n.
func (b *BatchBuffer[T]) extract(n int) []T {
	out := make([]T, 0, n)
	for len(out) < n {
		head, _ := b.ring.Peek()
		need := n - len(out)
		if len(head) <= need {
			out = append(out, head...)
			b.ring.Dequeue()
			continue
		}
		// 边界批次：取出前缀，未消费的后缀原位写回，保持顺序
		out = append(out, head[:need]...)
		b.ring.ReplaceOldest(head[need:])
	}
	b.consumed(n)
	return out
}

// drain removes everything left in the buffer.
func (b *BatchBuffer[T]) drain() []T {
	out := make([]T, 0, b.buffered)
	for {
		head, ok := b.ring.Dequeue()
		if !ok {
			break
		}
		out = append(out, head...)
	}
	b.consumed(len(out))
	return out
}

func (b *BatchBuffer[T]) consumed(n int) {
	b.buffered -= n
	b.delivered += n
	if b.observer != nil && n > 0 {
		b.observer.Delivered(n)
	}
}

// Reset clears buffered values and the exhausted flag for a new run. The ring
// keeps its grown capacity and the producer reference is retained.
func (b *BatchBuffer[T]) Reset() {
	if b.ring != nil {
		b.ring.Clear()
	}
	b.buffered = 0
	b.exhausted = false
	b.pulls = 0
	b.delivered = 0
}

// Rebind swaps the producer and resets the buffer.
func (b *BatchBuffer[T]) Rebind(producer Producer[T]) error {
	if producer == nil {
		return types.NewError(types.ErrInvalidArgument, "producer is nil")
	}
	b.producer = producer
	b.Reset()
	return nil
}

// Buffered returns the number of values currently held.
func (b *BatchBuffer[T]) Buffered() int { return b.buffered }

// Exhausted reports whether the producer has signalled the end of the stream.
func (b *BatchBuffer[T]) Exhausted() bool { return b.exhausted }

// Stats returns a snapshot of the buffer counters.
func (b *BatchBuffer[T]) Stats() Stats {
	s := Stats{
		Buffered:  b.buffered,
		Pulls:     b.pulls,
		Delivered: b.delivered,
		Exhausted: b.exhausted,
	}
	if b.ring != nil {
		s.Batches = b.ring.Len()
		s.Capacity = b.ring.Cap()
		s.Growths = b.ring.Growths()
	}
	return s
}
