// Package fixtures 提供测试数据工厂：递增序列、批次切分与常用 Payload。
package fixtures

import "github.com/BaSui01/seriesflow/demux"

// Ramp 返回 0, 1, ..., n-1
func Ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

// IntRamp 返回 start, start+1, ..., start+n-1
func IntRamp(start, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = start + i
	}
	return out
}

// ComplexRamp 返回 k + ik, k = 0..n-1
func ComplexRamp(n int) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		out[i] = complex(float64(i), float64(i))
	}
	return out
}

// Batches 将 values 按 size 切分，最后一批可能更短
func Batches[T any](values []T, size int) [][]T {
	if size <= 0 {
		return [][]T{values}
	}
	var out [][]T
	for len(values) > 0 {
		n := min(size, len(values))
		out = append(out, values[:n:n])
		values = values[n:]
	}
	return out
}

// Split 按给定长度依次切分 values，剩余部分作为最后一批
func Split[T any](values []T, sizes ...int) [][]T {
	var out [][]T
	for _, n := range sizes {
		n = min(n, len(values))
		out = append(out, values[:n:n])
		values = values[n:]
	}
	if len(values) > 0 {
		out = append(out, values)
	}
	return out
}

// =============================================================================
// 📦 Payload 样例
// =============================================================================

// ComplexPayload 返回复数流的 Payload
func ComplexPayload(shapes ...demux.Shape) demux.Payload {
	return demux.Payload{DataType: demux.DataComplex, ArrayShapes: shapes}
}

// RealPayload 返回实数流的 Payload
func RealPayload(shapes ...demux.Shape) demux.Payload {
	return demux.Payload{DataType: demux.DataReal, ArrayShapes: shapes}
}

// IQPayload 返回 iq_matrix 生成器对 frame 的 Payload：一个 frame×2 矩阵加一个 frame 向量
func IQPayload(frame int) demux.Payload {
	return RealPayload(demux.Shape{frame, 2}, demux.Shape{frame})
}
