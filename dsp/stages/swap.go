package stages

import "sync/atomic"

// swapCell is a single-producer, single-consumer hand-off slot. The
// control context publishes a fully constructed value; the processing
// context takes it at most once per publish. Publishing again before
// the previous value was taken supersedes it; the superseded value is
// left to the garbage collector, never torn down on the processing
// path.
type swapCell[T any] struct {
	pending atomic.Pointer[T]
}

// publish stages v for the consumer. The atomic store orders every
// write made while constructing v before a take that observes it.
func (c *swapCell[T]) publish(v *T) {
	c.pending.Store(v)
}

// take removes and returns the staged value, or nil if none is
// staged. Wait-free; the common empty case is a single atomic load.
func (c *swapCell[T]) take() *T {
	if c.pending.Load() == nil {
		return nil
	}
	return c.pending.Swap(nil)
}
