package receptor

import (
	"sort"
	"sync"

	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/types"
	"go.uber.org/zap"
)

const (
	HandleAccumulate = "accumulate"
	HandleLog        = "log"
)

// Factory builds receptors for either sample type. A nil constructor means
// the receptor does not support that type.
type Factory struct {
	Real    func(logger *zap.Logger) demux.Receptor[float64]
	Complex func(logger *zap.Logger) demux.Receptor[complex128]
}

// Registry maps receptor handles to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding the built-in receptors.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(HandleAccumulate, Factory{
		Real:    func(*zap.Logger) demux.Receptor[float64] { return NewAccumulator[float64]() },
		Complex: func(*zap.Logger) demux.Receptor[complex128] { return NewAccumulator[complex128]() },
	})
	_ = r.Register(HandleLog, Factory{
		Real:    func(l *zap.Logger) demux.Receptor[float64] { return NewLog[float64](l) },
		Complex: func(l *zap.Logger) demux.Receptor[complex128] { return NewLog[complex128](l) },
	})
	return r
}

// Register adds a factory under handle.
func (r *Registry) Register(handle string, f Factory) error {
	if handle == "" || (f.Real == nil && f.Complex == nil) {
		return types.NewError(types.ErrInvalidArgument, "handle and at least one constructor are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[handle]; exists {
		return types.Errorf(types.ErrInvalidArgument, "receptor %q already registered", handle)
	}
	r.factories[handle] = f
	return nil
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

// Real builds a real-valued receptor.
func (r *Registry) Real(handle string, logger *zap.Logger) (demux.Receptor[float64], error) {
	f, err := r.lookup(handle)
	if err != nil {
		return nil, err
	}
	if f.Real == nil {
		return nil, types.Errorf(types.ErrUnknownReceptor, "receptor %s does not accept real data", handle)
	}
	return f.Real(nopIfNil(logger)), nil
}

// Complex builds a complex-valued receptor.
func (r *Registry) Complex(handle string, logger *zap.Logger) (demux.Receptor[complex128], error) {
	f, err := r.lookup(handle)
	if err != nil {
		return nil, err
	}
	if f.Complex == nil {
		return nil, types.Errorf(types.ErrUnknownReceptor, "receptor %s does not accept complex data", handle)
	}
	return f.Complex(nopIfNil(logger)), nil
}

func (r *Registry) lookup(handle string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[handle]
	if !ok {
		return Factory{}, types.Errorf(types.ErrUnknownReceptor, "receptor %s not recognized", handle)
	}
	return f, nil
}

func nopIfNil(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
