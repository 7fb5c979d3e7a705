package demux

import (
	"context"

	"github.com/BaSui01/seriesflow/types"
	"go.uber.org/zap"
)

// Source supplies exactly n values per call, fewer only at the end of the
// stream. buffer.BatchBuffer implements it.
type Source[T any] interface {
	Get(ctx context.Context, n int) ([]T, error)
}

// Stats is a snapshot of demultiplexer progress.
type Stats struct {
	Cycles  int  `json:"cycles"`
	Partial int  `json:"partial"`
	Dropped int  `json:"dropped"`
	Done    bool `json:"done"`
}

// Option configures a Demultiplexer.
type Option func(*demuxOptions)

type demuxOptions struct {
	policy ShrinkPolicy
	logger *zap.Logger
}

// WithShrinkPolicy selects how a terminal partial cycle is reshaped.
func WithShrinkPolicy(p ShrinkPolicy) Option {
	return func(o *demuxOptions) { o.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *demuxOptions) { o.logger = l }
}

// Demultiplexer rebuilds k independently shaped arrays per cycle from a flat
// stream in which the series are interleaved round-robin, one whole
// partition per series per cycle.
//
// The demultiplexer references its source; it does not own it.
type Demultiplexer[T any] struct {
	src    Source[T]
	shapes []Shape
	sizes  []int
	total  int
	policy ShrinkPolicy
	logger *zap.Logger

	cycles  int
	partial int
	dropped int
	done    bool
}

// New creates a demultiplexer reading from src. Configure must be called
// before the first cycle.
func New[T any](src Source[T], opts ...Option) *Demultiplexer[T] {
	o := demuxOptions{policy: ShrinkLeading}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return &Demultiplexer[T]{
		src:    src,
		policy: o.policy,
		logger: o.logger.With(zap.String("component", "demux")),
	}
}

// Configure installs the target shapes. A change in the number of series
// while a stream is in progress is a protocol violation; call Reset first to
// start a renegotiated stream.
func (d *Demultiplexer[T]) Configure(shapes []Shape) error {
	if len(shapes) == 0 {
		return types.NewError(types.ErrInvalidArgument, "at least one shape is required")
	}
	if d.inProgress() && len(shapes) != len(d.shapes) {
		return types.NewProtocolError("series count changed from %d to %d without renegotiation", len(d.shapes), len(shapes))
	}

	total, err := cycleSize(shapes)
	if err != nil {
		return err
	}
	cloned := make([]Shape, len(shapes))
	sizes := make([]int, len(shapes))
	for i, s := range shapes {
		cloned[i] = s.Clone()
		sizes[i] = s.Size()
	}

	d.shapes = cloned
	d.sizes = sizes
	d.total = total

	d.logger.Debug("configured",
		zap.Int("series", len(shapes)),
		zap.Int("cycle_size", total),
	)
	return nil
}

// Reset forgets stream progress so a new stream can be configured.
func (d *Demultiplexer[T]) Reset() {
	d.cycles = 0
	d.partial = 0
	d.dropped = 0
	d.done = false
}

// NextCycle pulls one cycle of values and returns one array per series. An
// empty result marks the end of the stream and is repeated on every later
// call.
func (d *Demultiplexer[T]) NextCycle(ctx context.Context) ([]Array[T], error) {
	if d.total == 0 {
		return nil, types.NewError(types.ErrInvalidState, "demultiplexer not configured")
	}
	if d.done {
		return nil, nil
	}

	vals, err := d.src.Get(ctx, d.total)
	if err != nil {
		return nil, err
	}
	available := len(vals)

	switch {
	case available == 0:
		d.done = true
		return nil, nil
	case available > d.total:
		return nil, types.NewProtocolError("source returned %d values for a cycle of %d", available, d.total)
	case available == d.total:
		d.cycles++
		return d.split(vals, d.shapes, d.sizes), nil
	}

	// 末尾不完整周期
	if d.policy == ShrinkDiscard {
		d.dropped += available
		d.done = true
		d.logger.Debug("partial cycle discarded", zap.Int("available", available))
		return nil, nil
	}

	shapes := make([]Shape, len(d.shapes))
	sizes := make([]int, len(d.shapes))
	used := 0
	for i, s := range d.shapes {
		shapes[i] = shrinkLeading(s, available, d.total)
		sizes[i] = shapes[i].Size()
		used += sizes[i]
	}
	d.cycles++
	d.partial++
	d.dropped += available - used

	d.logger.Debug("partial cycle shrunk",
		zap.Int("available", available),
		zap.Int("used", used),
		zap.Int("cycle_size", d.total),
	)
	return d.split(vals[:used], shapes, sizes), nil
}

func (d *Demultiplexer[T]) split(vals []T, shapes []Shape, sizes []int) []Array[T] {
	out := make([]Array[T], len(shapes))
	start := 0
	for i, s := range shapes {
		end := start + sizes[i]
		out[i] = Array[T]{Shape: s.Clone(), Data: vals[start:end:end]}
		start = end
	}
	return out
}

func (d *Demultiplexer[T]) inProgress() bool {
	return d.cycles > 0 && !d.done
}

// Shapes returns a copy of the configured shapes.
func (d *Demultiplexer[T]) Shapes() []Shape {
	out := make([]Shape, len(d.shapes))
	for i, s := range d.shapes {
		out[i] = s.Clone()
	}
	return out
}

// CycleSize returns the number of values in one full cycle.
func (d *Demultiplexer[T]) CycleSize() int { return d.total }

// Policy returns the shrink policy in use.
func (d *Demultiplexer[T]) Policy() ShrinkPolicy { return d.policy }

// Stats returns a snapshot of the progress counters.
func (d *Demultiplexer[T]) Stats() Stats {
	return Stats{Cycles: d.cycles, Partial: d.partial, Dropped: d.dropped, Done: d.done}
}
