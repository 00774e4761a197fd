// Package smooth provides the one-pole parameter smoother used by stages
// that ramp an audible value toward a control-plane target.
package smooth

import (
	"math"

	"github.com/cwbudde/algo-rig/dsp/core"
)

// Smoother interpolates exponentially from its current value toward a
// target, one step per sample. The recurrence never overshoots for
// non-negative values and converges geometrically at a rate set by
// Prepare. The zero value snaps instantly until Prepare is called.
//
// A Smoother belongs to a single processing context; it is not safe for
// concurrent use.
type Smoother struct {
	current float64
	target  float64
	coeff   float64
}

// Prepare derives the smoothing coefficient from the sample rate and a
// time constant in milliseconds. A non-positive or non-finite argument
// disables smoothing: the smoother then snaps to the target on the next
// step.
func (s *Smoother) Prepare(sampleRate, smoothingTimeMs float64) {
	if !core.IsFinite(sampleRate) || !core.IsFinite(smoothingTimeMs) ||
		sampleRate <= 0 || smoothingTimeMs <= 0 {
		s.coeff = 0
		return
	}

	s.coeff = math.Exp(-1 / (smoothingTimeMs / 1000 * sampleRate))
}

// SetTarget sets the value the smoother ramps toward. Cheap enough to
// call every block.
func (s *Smoother) SetTarget(v float64) {
	s.target = v
}

// Snap sets current and target at once, skipping any ramp. Used after
// prepare or reset so a fresh stage never ramps from a stale value.
func (s *Smoother) Snap(v float64) {
	s.current = v
	s.target = v
}

// Next advances the smoother by one sample and returns the new current
// value. Called exactly once per sample on the real-time path; O(1) with
// no branches.
func (s *Smoother) Next() float64 {
	s.current = s.coeff*s.current + (1-s.coeff)*s.target
	return s.current
}

// Current returns the present value without advancing.
func (s *Smoother) Current() float64 { return s.current }

// Target returns the value the smoother is ramping toward.
func (s *Smoother) Target() float64 { return s.target }

// Settled reports whether the ramp has fully converged. Stages use this
// to switch from per-sample stepping to a single block multiply.
func (s *Smoother) Settled() bool { return s.current == s.target }
