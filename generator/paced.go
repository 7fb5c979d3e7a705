package generator

import (
	"context"

	"github.com/BaSui01/seriesflow/buffer"
	"golang.org/x/time/rate"
)

// Paced limits a producer to hz batches per second. The wait happens before
// each pull so the first batch is never delayed.
type Paced[T any] struct {
	inner   buffer.Producer[T]
	limiter *rate.Limiter
}

// Pace wraps p with a rate limiter. hz <= 0 returns p unchanged.
func Pace[T any](p buffer.Producer[T], hz float64) buffer.Producer[T] {
	if hz <= 0 {
		return p
	}
	return &Paced[T]{inner: p, limiter: rate.NewLimiter(rate.Limit(hz), 1)}
}

// NextBatch waits for a token, then pulls from the wrapped producer.
func (p *Paced[T]) NextBatch(ctx context.Context) ([]T, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.inner.NextBatch(ctx)
}
