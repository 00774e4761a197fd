package params

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-rig/dsp/core"
)

// Store holds the current value of every parameter as float64 bits in a
// word-sized atomic. Set runs on the control context and clamps to the
// parameter's range; Get is a single lock-free load, safe on the
// real-time path.
//
// Visibility is best effort by design: a write is observed no later than
// the first Get after its atomic commit, and the real-time side samples
// values once per block. There is no cross-parameter ordering.
type Store struct {
	values [numParams]atomic.Uint64
}

// NewStore returns a store with every parameter at its default.
func NewStore() *Store {
	s := &Store{}
	s.ResetToDefaults()

	return s
}

// Set clamps v to the parameter's range and publishes it. Invalid ids
// and NaN values are dropped; infinities clamp to the range bound.
// Control context only.
func (s *Store) Set(id ID, v float64) {
	if !id.Valid() || math.IsNaN(v) {
		return
	}

	info := infos[id]
	clamped := core.Clamp(v, info.Min, info.Max)
	s.values[id].Store(math.Float64bits(clamped))
}

// Get returns the current value of id, or 0 for invalid ids. Lock-free,
// real-time safe.
func (s *Store) Get(id ID) float64 {
	if !id.Valid() {
		return 0
	}

	return math.Float64frombits(s.values[id].Load())
}

// ResetToDefaults rewrites every parameter with its default value.
// Control context only.
func (s *Store) ResetToDefaults() {
	for id := ID(0); id < numParams; id++ {
		s.values[id].Store(math.Float64bits(infos[id].Default))
	}
}
