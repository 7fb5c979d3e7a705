package demux

import (
	"fmt"
)

// Array is a row-major n-dimensional view over a flat slice.
type Array[T any] struct {
	Shape Shape `json:"shape"`
	Data  []T   `json:"data"`
}

// Reshape wraps data as an array of the given shape. The data length must
// equal the shape size.
func Reshape[T any](data []T, shape Shape) (Array[T], error) {
	if len(data) != shape.Size() {
		return Array[T]{}, fmt.Errorf("cannot reshape %d values into %v", len(data), shape)
	}
	return Array[T]{Shape: shape, Data: data}, nil
}

// Len returns the number of elements.
func (a Array[T]) Len() int { return len(a.Data) }

// Empty reports whether the array holds no elements.
func (a Array[T]) Empty() bool { return len(a.Data) == 0 }

// At returns the element at the given index tuple.
func (a Array[T]) At(idx ...int) T {
	if len(idx) != len(a.Shape) {
		panic(fmt.Sprintf("demux: %d indices for %d-dimensional array", len(idx), len(a.Shape)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= a.Shape[i] {
			panic(fmt.Sprintf("demux: index %d out of range for dimension %d of size %d", x, i, a.Shape[i]))
		}
		off = off*a.Shape[i] + x
	}
	return a.Data[off]
}

// Row returns the i-th slice along dimension 0 as a flat slice.
func (a Array[T]) Row(i int) []T {
	if len(a.Shape) == 0 || i < 0 || i >= a.Shape[0] {
		panic(fmt.Sprintf("demux: row %d out of range", i))
	}
	stride := 1
	for _, d := range a.Shape[1:] {
		stride *= d
	}
	return a.Data[i*stride : (i+1)*stride]
}
