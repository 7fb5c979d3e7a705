package demux_test

import (
	"context"
	"errors"
	"testing"

	"github.com/BaSui01/seriesflow/buffer"
	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newDemux(t *testing.T, batches [][]int, shapes []demux.Shape, opts ...demux.Option) *demux.Demultiplexer[int] {
	t.Helper()
	buf, err := buffer.NewBatchBuffer[int](buffer.NewSliceProducer(batches...))
	require.NoError(t, err)
	d := demux.New[int](buf, opts...)
	require.NoError(t, d.Configure(shapes))
	return d
}

func flat(arrays []demux.Array[int]) [][]int {
	out := make([][]int, len(arrays))
	for i, a := range arrays {
		out[i] = a.Data
	}
	return out
}

// =============================================================================
// 🧪 Demultiplexer 测试
// =============================================================================

func TestDemultiplexer_Scenario(t *testing.T) {
	ctx := context.Background()
	d := newDemux(t, [][]int{{10, 20, 30}, {40, 50}, {60}}, []demux.Shape{{2}, {2}})

	arrays, err := d.NextCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{10, 20}, {30, 40}}, flat(arrays))

	arrays, err = d.NextCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{50}, {60}}, flat(arrays))
	assert.Equal(t, demux.Shape{1}, arrays[0].Shape)
	assert.Equal(t, demux.Shape{1}, arrays[1].Shape)

	arrays, err = d.NextCycle(ctx)
	require.NoError(t, err)
	assert.Empty(t, arrays)

	arrays, err = d.NextCycle(ctx)
	require.NoError(t, err)
	assert.Empty(t, arrays, "terminal signal is sticky")

	st := d.Stats()
	assert.Equal(t, 2, st.Cycles)
	assert.Equal(t, 1, st.Partial)
	assert.True(t, st.Done)
}

func TestDemultiplexer_RowMajorReshape(t *testing.T) {
	// 序列 0: 2x3 矩阵；序列 1: 长度 2 向量
	d := newDemux(t, [][]int{{0, 1, 2, 3, 4, 5, 6, 7}}, []demux.Shape{{2, 3}, {2}})

	arrays, err := d.NextCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, arrays, 2)

	m := arrays[0]
	assert.Equal(t, demux.Shape{2, 3}, m.Shape)
	assert.Equal(t, 0, m.At(0, 0))
	assert.Equal(t, 2, m.At(0, 2))
	assert.Equal(t, 3, m.At(1, 0))
	assert.Equal(t, 5, m.At(1, 2))
	assert.Equal(t, []int{3, 4, 5}, m.Row(1))
	assert.Equal(t, []int{6, 7}, arrays[1].Data)
}

func TestDemultiplexer_PartitionsDoNotAlias(t *testing.T) {
	d := newDemux(t, [][]int{{1, 2, 3, 4}}, []demux.Shape{{2}, {2}})

	arrays, err := d.NextCycle(context.Background())
	require.NoError(t, err)

	grown := append(arrays[0].Data, 99)
	assert.Equal(t, []int{1, 2, 99}, grown)
	assert.Equal(t, []int{3, 4}, arrays[1].Data)
}

func TestDemultiplexer_PartialCycleMultiDimensional(t *testing.T) {
	// total = 4*2 + 4 = 12；末尾只剩 6 个值 → 第 0 维缩为 floor(4*6/12)=2
	vals := make([]int, 18)
	for i := range vals {
		vals[i] = i
	}
	d := newDemux(t, [][]int{vals}, []demux.Shape{{4, 2}, {4}})
	ctx := context.Background()

	_, err := d.NextCycle(ctx)
	require.NoError(t, err)

	arrays, err := d.NextCycle(ctx)
	require.NoError(t, err)
	require.Len(t, arrays, 2)
	assert.Equal(t, demux.Shape{2, 2}, arrays[0].Shape)
	assert.Equal(t, []int{12, 13, 14, 15}, arrays[0].Data)
	assert.Equal(t, demux.Shape{2}, arrays[1].Shape)
	assert.Equal(t, []int{16, 17}, arrays[1].Data)
	assert.Equal(t, 0, d.Stats().Dropped)
}

func TestDemultiplexer_PartialCycleDropsRemainder(t *testing.T) {
	// total = 3+3 = 6；剩 5 个值 → floor(3*5/6)=2 → 共使用 4，丢弃 1
	d := newDemux(t, [][]int{{1, 2, 3, 4, 5}}, []demux.Shape{{3}, {3}})

	arrays, err := d.NextCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 2}, {3, 4}}, flat(arrays))
	assert.Equal(t, 1, d.Stats().Dropped)
}

func TestDemultiplexer_PartialCycleHugeShapes(t *testing.T) {
	// total = 2^62；剩 4 个值 → floor(2^61*4/2^62)=2，乘积超出 int 也不回绕
	d := newDemux(t, [][]int{{1, 2, 3, 4}}, []demux.Shape{{1 << 61}, {1 << 61}})

	arrays, err := d.NextCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, arrays, 2)
	assert.Equal(t, demux.Shape{2}, arrays[0].Shape)
	assert.Equal(t, [][]int{{1, 2}, {3, 4}}, flat(arrays))
}

func TestDemultiplexer_ShrinkDiscard(t *testing.T) {
	d := newDemux(t, [][]int{{1, 2, 3, 4, 5, 6}}, []demux.Shape{{2}, {2}}, demux.WithShrinkPolicy(demux.ShrinkDiscard))
	ctx := context.Background()

	arrays, err := d.NextCycle(ctx)
	require.NoError(t, err)
	assert.Len(t, arrays, 2)

	arrays, err = d.NextCycle(ctx)
	require.NoError(t, err)
	assert.Empty(t, arrays)
	assert.Equal(t, 2, d.Stats().Dropped)
	assert.Equal(t, demux.ShrinkDiscard, d.Policy())
}

func TestDemultiplexer_NotConfigured(t *testing.T) {
	buf, err := buffer.NewBatchBuffer[int](buffer.NewSliceProducer[int]())
	require.NoError(t, err)
	d := demux.New[int](buf)

	_, err = d.NextCycle(context.Background())
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidState))
}

func TestDemultiplexer_ConfigureValidation(t *testing.T) {
	buf, err := buffer.NewBatchBuffer[int](buffer.NewSliceProducer[int]())
	require.NoError(t, err)
	d := demux.New[int](buf)

	assert.Error(t, d.Configure(nil))
	assert.Error(t, d.Configure([]demux.Shape{{}}))
	assert.Error(t, d.Configure([]demux.Shape{{2, 0}}))
	assert.Error(t, d.Configure([]demux.Shape{{-1}}))
	assert.Error(t, d.Configure([]demux.Shape{{1<<62 + 1, 4}}))
	assert.Error(t, d.Configure([]demux.Shape{{1 << 32, 1 << 32}}))
	assert.Error(t, d.Configure([]demux.Shape{{1 << 62}, {1 << 62}}))

	require.NoError(t, d.Configure([]demux.Shape{{2, 3}, {4}}))
	assert.Equal(t, 10, d.CycleSize())
}

func TestDemultiplexer_CardinalityChangeMidStream(t *testing.T) {
	d := newDemux(t, [][]int{{1, 2, 3, 4, 5, 6, 7, 8}}, []demux.Shape{{2}, {2}})
	ctx := context.Background()

	_, err := d.NextCycle(ctx)
	require.NoError(t, err)

	err = d.Configure([]demux.Shape{{4}})
	assert.True(t, types.IsProtocolViolation(err))

	// 同样数量的序列可以更换形状
	require.NoError(t, d.Configure([]demux.Shape{{1}, {3}}))
	arrays, err := d.NextCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{5}, {6, 7, 8}}, flat(arrays))

	d.Reset()
	require.NoError(t, d.Configure([]demux.Shape{{4}}))
}

func TestDemultiplexer_ShapesAreCopied(t *testing.T) {
	shapes := []demux.Shape{{2}, {2}}
	d := newDemux(t, [][]int{{1, 2, 3}}, shapes)

	shapes[0][0] = 100
	assert.Equal(t, demux.Shape{2}, d.Shapes()[0])

	// 不完整周期的缩小不得修改已配置的形状
	_, err := d.NextCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []demux.Shape{{2}, {2}}, d.Shapes())
}

type failingSource struct{ err error }

func (f failingSource) Get(context.Context, int) ([]int, error) { return nil, f.err }

func TestDemultiplexer_SourceError(t *testing.T) {
	boom := errors.New("boom")
	d := demux.New[int](failingSource{err: boom})
	require.NoError(t, d.Configure([]demux.Shape{{1}}))

	_, err := d.NextCycle(context.Background())
	assert.ErrorIs(t, err, boom)
}

// m 个完整周期 → m 次 k 个数组，随后一次空列表
func TestProperty_FullCyclesThenTerminal(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		k := rapid.IntRange(1, 4).Draw(rt, "k")
		shapes := make([]demux.Shape, k)
		total := 0
		for i := range shapes {
			rows := rapid.IntRange(1, 4).Draw(rt, "rows")
			cols := rapid.IntRange(1, 3).Draw(rt, "cols")
			if rapid.Bool().Draw(rt, "twoDim") {
				shapes[i] = demux.Shape{rows, cols}
			} else {
				shapes[i] = demux.Shape{rows}
			}
			total += shapes[i].Size()
		}
		m := rapid.IntRange(0, 6).Draw(rt, "m")
		tail := rapid.IntRange(0, total-1).Draw(rt, "tail")

		// 以任意大小分批
		stream := make([]int, m*total+tail)
		for i := range stream {
			stream[i] = i
		}
		var batches [][]int
		for rest := stream; len(rest) > 0; {
			n := rapid.IntRange(1, 7).Draw(rt, "batch")
			if n > len(rest) {
				n = len(rest)
			}
			batches = append(batches, rest[:n])
			rest = rest[n:]
		}

		buf, err := buffer.NewBatchBuffer[int](buffer.NewSliceProducer(batches...))
		require.NoError(rt, err)
		d := demux.New[int](buf)
		require.NoError(rt, d.Configure(shapes))

		next := 0
		for c := 0; c < m; c++ {
			arrays, err := d.NextCycle(context.Background())
			require.NoError(rt, err)
			require.Len(rt, arrays, k)
			for i, a := range arrays {
				require.Equal(rt, shapes[i], a.Shape)
				for _, v := range a.Data {
					require.Equal(rt, next, v)
					next++
				}
			}
		}

		arrays, err := d.NextCycle(context.Background())
		require.NoError(rt, err)
		if tail > 0 {
			require.Len(rt, arrays, k)
			used := 0
			for i, a := range arrays {
				require.Equal(rt, shapes[i][0]*tail/total, a.Shape[0])
				used += a.Len()
			}
			require.LessOrEqual(rt, used, tail)
			arrays, err = d.NextCycle(context.Background())
			require.NoError(rt, err)
		}
		require.Empty(rt, arrays)
	})
}
