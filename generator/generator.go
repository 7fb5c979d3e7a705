package generator

import (
	"context"
	"sort"
	"sync"

	"github.com/BaSui01/seriesflow/buffer"
	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/param"
	"github.com/BaSui01/seriesflow/types"
)

// Generator is a configurable source of one time series stream.
type Generator interface {
	// Spec returns the parameter schema offered to clients.
	Spec() param.Spec
	// Configure applies resolved parameters and starts a new run.
	Configure(values map[string]any) (demux.Payload, error)
}

// Real is a generator of real-valued samples.
type Real interface {
	Generator
	buffer.Producer[float64]
}

// Complex is a generator of complex-valued samples.
type Complex interface {
	Generator
	buffer.Producer[complex128]
}

// Factory builds a fresh generator instance.
type Factory func() Generator

// Registry maps generator handles to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding the built-in generators.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(HandleCexp, func() Generator { return NewCexp() })
	_ = r.Register(HandleSinusoids, func() Generator { return NewSinusoids() })
	_ = r.Register(HandleIQMatrix, func() Generator { return NewIQMatrix() })
	return r
}

// Register adds a factory under handle. Handles are unique.
func (r *Registry) Register(handle string, f Factory) error {
	if handle == "" || f == nil {
		return types.NewError(types.ErrInvalidArgument, "handle and factory are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[handle]; exists {
		return types.Errorf(types.ErrInvalidArgument, "generator %q already registered", handle)
	}
	r.factories[handle] = f
	return nil
}

// Lookup builds a new generator for handle.
func (r *Registry) Lookup(handle string) (Generator, error) {
	r.mu.RLock()
	f, ok := r.factories[handle]
	r.mu.RUnlock()
	if !ok {
		return nil, types.Errorf(types.ErrUnknownGenerator, "generator %s not recognized", handle).WithField("generator")
	}
	return f(), nil
}

// Handles returns the registered handles in sorted order.
func (r *Registry) Handles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for h := range r.factories {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// Describe returns handle → description for every registered generator.
func (r *Registry) Describe() map[string]string {
	out := make(map[string]string)
	for _, h := range r.Handles() {
		g, err := r.Lookup(h)
		if err != nil {
			continue
		}
		out[h] = g.Spec().Description
	}
	return out
}

// DataTypeOf reports which sample type a generator produces.
func DataTypeOf(g Generator) (demux.DataType, error) {
	switch g.(type) {
	case Complex:
		return demux.DataComplex, nil
	case Real:
		return demux.DataReal, nil
	default:
		return "", types.Errorf(types.ErrInvalidArgument, "generator %T produces no samples", g)
	}
}

// =============================================================================
// 🔁 帧计数
// =============================================================================

// run tracks frame emission for the built-in generators.
type run struct {
	configured bool
	emitted    int
	limit      int
}

func (r *run) start(limit int) {
	r.configured = true
	r.emitted = 0
	r.limit = limit
}

// next reserves up to per units for this call. n is zero once the run is
// done.
func (r *run) next(ctx context.Context, per int) (start, n int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if !r.configured {
		return 0, 0, types.NewError(types.ErrInvalidState, "generator not configured")
	}
	n = min(per, r.limit-r.emitted)
	if n <= 0 {
		return r.emitted, 0, nil
	}
	start = r.emitted
	r.emitted += n
	return start, n, nil
}

// atLeastOne rejects non-positive sizes that would stall a run.
func atLeastOne(name string, v int) error {
	if v < 1 {
		return types.Errorf(types.ErrParameterOutOfBounds, "parameter %s out of bounds", name).WithField(name)
	}
	return nil
}
