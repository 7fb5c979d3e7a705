package demux

import (
	"context"
	"errors"
	"fmt"
)

// Receptor consumes reconstructed arrays. Receive is called once per cycle
// and one final time with an empty list.
type Receptor[T any] interface {
	Receive(arrays []Array[T]) error
}

// ReceptorFunc adapts a function to Receptor.
type ReceptorFunc[T any] func(arrays []Array[T]) error

// Receive calls f.
func (f ReceptorFunc[T]) Receive(arrays []Array[T]) error { return f(arrays) }

// Pump drives d until the end of the stream, handing every cycle to r and
// finishing with one empty call. When the stream fails, r still receives the
// empty terminal call before the error is returned; cycles already delivered
// stand. A receptor error stops the pump immediately.
func Pump[T any](ctx context.Context, d *Demultiplexer[T], r Receptor[T]) (int, error) {
	cycles := 0
	for {
		arrays, err := d.NextCycle(ctx)
		if err != nil {
			if rerr := r.Receive(nil); rerr != nil {
				err = errors.Join(err, fmt.Errorf("receptor: %w", rerr))
			}
			return cycles, err
		}
		if len(arrays) == 0 {
			if err := r.Receive(nil); err != nil {
				return cycles, fmt.Errorf("receptor: %w", err)
			}
			return cycles, nil
		}
		if err := r.Receive(arrays); err != nil {
			return cycles, fmt.Errorf("receptor: %w", err)
		}
		cycles++
	}
}
