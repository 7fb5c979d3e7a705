package demux

import (
	"fmt"
	"math"
	"math/bits"
	"strings"

	"github.com/BaSui01/seriesflow/types"
)

// Shape is a row-major array shape; every dimension must be positive.
type Shape []int

// Size returns the product of the dimensions.
func (s Shape) Size() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Validate checks that the shape is non-empty with positive dimensions and
// that its size fits in an int.
func (s Shape) Validate() error {
	if len(s) == 0 {
		return types.NewError(types.ErrInvalidArgument, "shape has no dimensions")
	}
	n := 1
	for i, d := range s {
		if d <= 0 {
			return types.Errorf(types.ErrInvalidArgument, "shape %v: dimension %d is %d, must be positive", []int(s), i, d)
		}
		if n > math.MaxInt/d {
			return types.Errorf(types.ErrInvalidArgument, "shape %v: size overflows int", []int(s))
		}
		n *= d
	}
	return nil
}

// cycleSize validates every shape and returns the sum of their sizes.
func cycleSize(shapes []Shape) (int, error) {
	total := 0
	for i, s := range shapes {
		if err := s.Validate(); err != nil {
			return 0, fmt.Errorf("series %d: %w", i, err)
		}
		n := s.Size()
		if total > math.MaxInt-n {
			return 0, types.Errorf(types.ErrInvalidArgument, "series %d: cycle size overflows int", i)
		}
		total += n
	}
	return total, nil
}

// Clone returns an independent copy.
func (s Shape) Clone() Shape {
	return append(Shape(nil), s...)
}

// String renders the shape as "(a, b, c)".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = fmt.Sprint(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ShrinkPolicy decides how a terminal partial cycle is reshaped.
type ShrinkPolicy string

const (
	// ShrinkLeading scales dimension 0 of every series by available/total
	// (floored) and keeps the other dimensions.
	ShrinkLeading ShrinkPolicy = "leading"
	// ShrinkDiscard drops a partial cycle and ends the stream.
	ShrinkDiscard ShrinkPolicy = "discard"
)

// ParseShrinkPolicy maps a configuration string to a policy; empty means
// ShrinkLeading.
func ParseShrinkPolicy(s string) (ShrinkPolicy, error) {
	switch ShrinkPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ShrinkLeading:
		return ShrinkLeading, nil
	case ShrinkDiscard:
		return ShrinkDiscard, nil
	default:
		return "", types.Errorf(types.ErrInvalidArgument, "unknown shrink policy %q", s)
	}
}

// shrinkLeading returns shape with dimension 0 scaled to floor(d0*available/total).
// The product is taken in 128 bits; d0 <= total and available < total keep
// the quotient within int.
func shrinkLeading(s Shape, available, total int) Shape {
	out := s.Clone()
	hi, lo := bits.Mul64(uint64(s[0]), uint64(available))
	q, _ := bits.Div64(hi, lo, uint64(total))
	out[0] = int(q)
	return out
}
