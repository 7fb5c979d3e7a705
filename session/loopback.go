package session

import (
	"context"
	"sync"

	"github.com/BaSui01/seriesflow/buffer"
	"github.com/BaSui01/seriesflow/types"
)

// Loopback connects a client session directly to a server session in the
// same process. Each opened stream runs the server in its own goroutine;
// cancel ctx to stop a stream the client abandons.
type Loopback struct {
	server *Server
	depth  int
}

// NewLoopback returns a transport backed by s.
func NewLoopback(s *Server) *Loopback {
	return &Loopback{server: s, depth: 16}
}

// Exchange dispatches req on the server.
func (l *Loopback) Exchange(ctx context.Context, req Config) (Info, error) {
	return l.server.Dispatch(ctx, req), nil
}

// OpenReal streams real samples.
func (l *Loopback) OpenReal(ctx context.Context) (buffer.Producer[float64], error) {
	return openLoop(ctx, l, func(f Frame) []float64 { return f.Real }), nil
}

// OpenComplex streams complex samples.
func (l *Loopback) OpenComplex(ctx context.Context) (buffer.Producer[complex128], error) {
	return openLoop(ctx, l, func(f Frame) []complex128 { return f.Complex }), nil
}

func openLoop[T any](ctx context.Context, l *Loopback, pick func(Frame) []T) *chanProducer[T] {
	p := &chanProducer[T]{ch: make(chan []T, l.depth)}
	go func() {
		defer close(p.ch)
		_, err := l.server.Stream(ctx, func(f Frame) error {
			vals := pick(f)
			if len(vals) == 0 {
				return types.NewProtocolError("frame of the wrong data type")
			}
			select {
			case p.ch <- vals:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		p.setErr(err)
	}()
	return p
}

// chanProducer adapts a channel of frames to buffer.Producer. A stream error
// is reported once, after which the producer stays exhausted.
type chanProducer[T any] struct {
	ch       chan []T
	mu       sync.Mutex
	err      error
	reported bool
}

func (p *chanProducer[T]) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// NextBatch returns the next frame, or an empty batch once the stream ended.
func (p *chanProducer[T]) NextBatch(ctx context.Context) ([]T, error) {
	select {
	case vals, ok := <-p.ch:
		if ok {
			return vals, nil
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil && !p.reported {
		p.reported = true
		return nil, p.err
	}
	return nil, nil
}
