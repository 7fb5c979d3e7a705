package buffer

import (
	"github.com/BaSui01/seriesflow/types"
)

const (
	// DefaultInitialCapacity is the slot count of a new ring.
	DefaultInitialCapacity = 10
	// DefaultGrowthFactor must stay above 1.
	DefaultGrowthFactor = 1.5
)

// Ring is a growable circular FIFO of batches.
//
// The newest entry lives at (oldest+count-1) mod len(slots). Growth inserts
// empty slots right before the oldest entry, so every buffered batch keeps
// its position relative to the others.
// Ring is not safe for concurrent use.
type Ring[B any] struct {
	slots   []B
	oldest  int
	count   int
	factor  float64
	growths int
}

// NewRing allocates a ring with the given capacity and growth factor.
func NewRing[B any](capacity int, growthFactor float64) (*Ring[B], error) {
	if capacity < 1 {
		return nil, types.Errorf(types.ErrInvalidArgument, "ring capacity must be >= 1, got %d", capacity)
	}
	if growthFactor <= 1 {
		return nil, types.Errorf(types.ErrInvalidArgument, "growth factor must be > 1, got %g", growthFactor)
	}
	return &Ring[B]{
		slots:  make([]B, capacity),
		factor: growthFactor,
	}, nil
}

// Enqueue appends b as the newest entry, growing first when full.
func (r *Ring[B]) Enqueue(b B) {
	if r.count == len(r.slots) {
		r.grow()
	}
	r.count++
	r.slots[(r.oldest+r.count-1)%len(r.slots)] = b
}

// Dequeue removes and returns the oldest entry; ok is false when empty.
func (r *Ring[B]) Dequeue() (b B, ok bool) {
	if r.count == 0 {
		return b, false
	}
	var zero B
	b = r.slots[r.oldest]
	r.slots[r.oldest] = zero
	r.oldest = (r.oldest + 1) % len(r.slots)
	r.count--
	return b, true
}

// Peek returns the oldest entry without removing it.
func (r *Ring[B]) Peek() (b B, ok bool) {
	if r.count == 0 {
		return b, false
	}
	return r.slots[r.oldest], true
}

// ReplaceOldest overwrites the oldest entry in place. It reports false when
// the ring is empty.
func (r *Ring[B]) ReplaceOldest(b B) bool {
	if r.count == 0 {
		return false
	}
	r.slots[r.oldest] = b
	return true
}

// Len returns the number of occupied slots.
func (r *Ring[B]) Len() int { return r.count }

// Cap returns the number of slots.
func (r *Ring[B]) Cap() int { return len(r.slots) }

// Growths returns how many times the ring has grown.
func (r *Ring[B]) Growths() int { return r.growths }

// Clear drops every entry and keeps the capacity.
func (r *Ring[B]) Clear() {
	clear(r.slots)
	r.oldest = 0
	r.count = 0
}

// grow adds int(cap*(factor-1))+1 slots in front of the oldest entry.
func (r *Ring[B]) grow() {
	add := int(float64(len(r.slots))*(r.factor-1)) + 1

	slots := make([]B, 0, len(r.slots)+add)
	slots = append(slots, r.slots[:r.oldest]...)
	slots = append(slots, make([]B, add)...)
	slots = append(slots, r.slots[r.oldest:]...)

	r.slots = slots
	r.oldest += add
	r.growths++
}
