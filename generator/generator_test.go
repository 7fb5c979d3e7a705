package generator

import (
	"context"
	"math"
	"math/cmplx"
	"testing"
	"time"

	"github.com/BaSui01/seriesflow/buffer"
	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/param"
	"github.com/BaSui01/seriesflow/testutil/fixtures"
	"github.com/BaSui01/seriesflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// negotiate runs the full parameter negotiation the way a server session does.
func negotiate(t *testing.T, g Generator, overrides map[string]any) map[string]any {
	t.Helper()
	n := param.NewNegotiator()
	n.Set(g.Spec())
	n.Update(overrides)
	require.Nil(t, n.Validate())
	return n.Final()
}

func TestRegistry_Default(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{HandleCexp, HandleIQMatrix, HandleSinusoids}, r.Handles())

	desc := r.Describe()
	assert.Len(t, desc, 3)
	assert.Contains(t, desc[HandleCexp], "complex exponential")

	g, err := r.Lookup(HandleCexp)
	require.NoError(t, err)
	dt, err := DataTypeOf(g)
	require.NoError(t, err)
	assert.Equal(t, demux.DataComplex, dt)

	g2, err := r.Lookup(HandleCexp)
	require.NoError(t, err)
	assert.NotSame(t, g, g2, "lookup builds a fresh instance")

	_, err = r.Lookup("square")
	assert.True(t, types.IsErrorCode(err, types.ErrUnknownGenerator))
}

func TestRegistry_RegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("x", func() Generator { return NewCexp() }))
	assert.Error(t, r.Register("x", func() Generator { return NewCexp() }))
	assert.Error(t, r.Register("", func() Generator { return NewCexp() }))
	assert.Error(t, r.Register("y", nil))
}

// =============================================================================
// 🧪 cexp
// =============================================================================

func TestCexp_FramesAndExhaustion(t *testing.T) {
	ctx := context.Background()
	g := NewCexp()

	_, err := g.NextBatch(ctx)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidState))

	final := negotiate(t, g, map[string]any{"frame": 20, "num_samples": 55, "phase_increment": 0.01})
	payload, err := g.Configure(final)
	require.NoError(t, err)
	assert.Equal(t, fixtures.ComplexPayload(demux.Shape{20}), payload)

	var sizes []int
	var all []complex128
	for {
		b, err := g.NextBatch(ctx)
		require.NoError(t, err)
		if len(b) == 0 {
			break
		}
		sizes = append(sizes, len(b))
		all = append(all, b...)
	}
	assert.Equal(t, []int{20, 20, 15}, sizes)

	b, err := g.NextBatch(ctx)
	require.NoError(t, err)
	assert.Empty(t, b, "stays exhausted")

	assert.InDelta(t, 1.0, real(all[0]), 1e-12)
	assert.InDelta(t, 0.0, imag(all[0]), 1e-12)
	for i, v := range all {
		assert.InDelta(t, 1.0, cmplx.Abs(v), 1e-12)
		s, c := math.Sincos(2 * math.Pi * 0.01 * float64(i))
		assert.InDelta(t, c, real(v), 1e-9)
		assert.InDelta(t, s, imag(v), 1e-9)
	}
}

func TestCexp_ReconfigureRestarts(t *testing.T) {
	ctx := context.Background()
	g := NewCexp()
	_, err := g.Configure(negotiate(t, g, map[string]any{"num_samples": 3, "phase_increment": 0.1}))
	require.NoError(t, err)

	b, err := g.NextBatch(ctx)
	require.NoError(t, err)
	assert.Len(t, b, 3)

	_, err = g.Configure(negotiate(t, g, map[string]any{"num_samples": 2, "phase_increment": 0.1, "phase_initial": 0.25}))
	require.NoError(t, err)
	b, err = g.NextBatch(ctx)
	require.NoError(t, err)
	require.Len(t, b, 2)
	assert.InDelta(t, 0.0, real(b[0]), 1e-12)
	assert.InDelta(t, 1.0, imag(b[0]), 1e-12)
}

func TestCexp_ConfigureRejectsBadValues(t *testing.T) {
	g := NewCexp()
	_, err := g.Configure(map[string]any{"num_samples": 0, "frame": 10, "phase_increment": 0.1})
	assert.True(t, types.IsErrorCode(err, types.ErrParameterOutOfBounds))

	_, err = g.Configure(map[string]any{"num_samples": "lots"})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidArgument))
}

// =============================================================================
// 🧪 sinusoids / iq_matrix
// =============================================================================

func TestSinusoids_DemultiplexesIntoSeries(t *testing.T) {
	g := NewSinusoids()
	payload, err := g.Configure(negotiate(t, g, map[string]any{"num_cycles": 3, "frame": 4, "count": 3, "frequency": 0.125}))
	require.NoError(t, err)
	require.NoError(t, payload.Validate())
	assert.Equal(t, []demux.Shape{{4}, {4}, {4}}, payload.ArrayShapes)

	buf, err := buffer.NewBatchBuffer[float64](g)
	require.NoError(t, err)
	d := demux.New[float64](buf)
	require.NoError(t, d.Configure(payload.ArrayShapes))

	cycles := 0
	for {
		arrays, err := d.NextCycle(context.Background())
		require.NoError(t, err)
		if len(arrays) == 0 {
			break
		}
		for k, a := range arrays {
			f := 0.125 * float64(k+1)
			for i, v := range a.Data {
				tm := float64(cycles*4 + i)
				assert.InDelta(t, math.Sin(2*math.Pi*f*tm), v, 1e-12)
			}
		}
		cycles++
	}
	assert.Equal(t, 3, cycles)
}

func TestIQMatrix_RowsAndEnvelope(t *testing.T) {
	g := NewIQMatrix()
	payload, err := g.Configure(negotiate(t, g, map[string]any{"num_frames": 2, "frame": 8, "frequency": 0.25, "amplitude": 2.0, "decay": 0.1}))
	require.NoError(t, err)
	assert.Equal(t, fixtures.IQPayload(8), payload)

	buf, err := buffer.NewBatchBuffer[float64](g, buffer.WithInitialCapacity(1))
	require.NoError(t, err)
	d := demux.New[float64](buf)
	require.NoError(t, d.Configure(payload.ArrayShapes))

	arrays, err := d.NextCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, arrays, 2)
	iq, env := arrays[0], arrays[1]
	for i := 0; i < 8; i++ {
		mag := math.Hypot(iq.At(i, 0), iq.At(i, 1))
		assert.InDelta(t, env.Data[i], mag, 1e-12)
	}
	assert.InDelta(t, 2.0, env.Data[0], 1e-12)
	assert.Less(t, env.Data[7], env.Data[0])
}

func TestPace(t *testing.T) {
	src := buffer.NewSliceProducer([]int{1}, []int{2})
	assert.Same(t, src, Pace[int](src, 0), "unpaced producer passes through")

	paced := Pace[int](buffer.NewSliceProducer([]int{1}, []int{2}), 1000)
	b, err := paced.NextBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, b)

	slow := Pace[int](buffer.NewSliceProducer([]int{1}, []int{2}), 0.01)
	_, err = slow.NextBatch(context.Background())
	require.NoError(t, err, "burst of one lets the first pull through")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = slow.NextBatch(ctx)
	assert.Error(t, err)
}
