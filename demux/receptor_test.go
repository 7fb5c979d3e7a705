package demux_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/BaSui01/seriesflow/buffer"
	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/testutil/fixtures"
	"github.com/BaSui01/seriesflow/testutil/mocks"
	"github.com/BaSui01/seriesflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPump_DeliversCyclesThenTerminal(t *testing.T) {
	d := newDemux(t, [][]int{{10, 20, 30, 40, 50, 60}}, []demux.Shape{{2}, {2}})
	rec := mocks.NewReceptor[demux.Array[int]]()

	cycles, err := demux.Pump[int](context.Background(), d, rec)
	require.NoError(t, err)
	assert.Equal(t, 2, cycles)
	require.Len(t, rec.Calls(), 3)
	assert.Empty(t, rec.Calls()[2])
	assert.Equal(t, 1, rec.Terminals())
}

func TestPump_ProtocolViolationEndsWithTerminalFrame(t *testing.T) {
	p := mocks.NewProducer([]int{1, 2}).FailAfter(1, types.NewProtocolError("malformed batch"))
	buf, err := buffer.NewBatchBuffer[int](p)
	require.NoError(t, err)
	d := demux.New[int](buf)
	require.NoError(t, d.Configure([]demux.Shape{{2}}))

	rec := mocks.NewReceptor[demux.Array[int]]()
	cycles, err := demux.Pump[int](context.Background(), d, rec)
	assert.True(t, types.IsProtocolViolation(err))
	assert.Equal(t, 1, cycles)
	calls := rec.Calls()
	require.Len(t, calls, 2, "delivered cycle stands, then one empty terminal call")
	assert.Equal(t, []int{1, 2}, calls[0][0].Data)
	assert.Empty(t, calls[1])
}

func TestPump_ReceptorErrorStops(t *testing.T) {
	d := newDemux(t, [][]int{{1, 2, 3, 4}}, []demux.Shape{{1}})
	boom := errors.New("full")
	rec := mocks.NewReceptor[demux.Array[int]]().WithError(boom)

	cycles, err := demux.Pump[int](context.Background(), d, rec)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cycles)
	assert.Len(t, rec.Calls(), 1)
}

func TestPump_ReceptorFailsMidStream(t *testing.T) {
	d := newDemux(t, fixtures.Batches(fixtures.IntRamp(0, 6), 4), []demux.Shape{{2}})
	boom := errors.New("disk full")
	rec := mocks.NewReceptor[demux.Array[int]]().FailAfter(2, boom)

	cycles, err := demux.Pump[int](context.Background(), d, rec)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, cycles)
	assert.Equal(t, 3, rec.Cycles())
	assert.Zero(t, rec.Terminals(), "no terminal call after a receptor failure")
}

func TestPump_ReceptorFunc(t *testing.T) {
	d := newDemux(t, [][]int{{1, 2, 3}}, []demux.Shape{{1}})
	var seen []int
	terminal := 0
	_, err := demux.Pump[int](context.Background(), d, demux.ReceptorFunc[int](func(arrays []demux.Array[int]) error {
		if len(arrays) == 0 {
			terminal++
			return nil
		}
		seen = append(seen, arrays[0].Data...)
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, 1, terminal)
}

func TestPayload_JSONAndValidate(t *testing.T) {
	var p demux.Payload
	require.NoError(t, json.Unmarshal([]byte(`{"data_type":"complex","array_shapes":[[20],[4,2]]}`), &p))
	assert.Equal(t, demux.DataComplex, p.DataType)
	assert.Equal(t, []demux.Shape{{20}, {4, 2}}, p.ArrayShapes)
	assert.NoError(t, p.Validate())
	assert.Equal(t, 28, p.CycleSize())

	bad := demux.Payload{DataType: "quaternion", ArrayShapes: []demux.Shape{{1}}}
	assert.True(t, types.IsProtocolViolation(bad.Validate()))

	bad = demux.Payload{DataType: demux.DataReal}
	assert.True(t, types.IsProtocolViolation(bad.Validate()))

	bad = demux.Payload{DataType: demux.DataReal, ArrayShapes: []demux.Shape{{0}}}
	assert.True(t, types.IsProtocolViolation(bad.Validate()))

	// 维度乘积或周期总数超出 int
	for _, shapes := range [][]demux.Shape{
		{{1<<62 + 1, 4}},
		{{1 << 32, 1 << 32}},
		{{1 << 62}, {1 << 62}},
	} {
		bad = demux.Payload{DataType: demux.DataComplex, ArrayShapes: shapes}
		assert.True(t, types.IsProtocolViolation(bad.Validate()), "shapes %v", shapes)
	}
	assert.Error(t, demux.Shape{1 << 40, 1 << 40}.Validate())
	assert.NoError(t, demux.Shape{1 << 31, 1 << 31}.Validate())
}

func TestParseShrinkPolicy(t *testing.T) {
	p, err := demux.ParseShrinkPolicy("")
	require.NoError(t, err)
	assert.Equal(t, demux.ShrinkLeading, p)

	p, err = demux.ParseShrinkPolicy(" Discard ")
	require.NoError(t, err)
	assert.Equal(t, demux.ShrinkDiscard, p)

	_, err = demux.ParseShrinkPolicy("middle")
	assert.Error(t, err)
}

func TestShape_String(t *testing.T) {
	assert.Equal(t, "(4, 2)", demux.Shape{4, 2}.String())
	assert.Equal(t, 8, demux.Shape{4, 2}.Size())
	assert.Equal(t, 0, demux.Shape{}.Size())
}
