package stages

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-rig/dsp/core"
	"github.com/cwbudde/algo-rig/dsp/smooth"
	vecmath "github.com/cwbudde/algo-vecmath"
)

const (
	// Safe range for user-facing gain settings.
	minGainDB = -60.0
	maxGainDB = 24.0

	// Linear floor keeping smoothed gains out of the denormal range.
	minGainLinear = 1e-3

	gainSmoothingMs = 10.0
)

var maxGainLinear = core.DBToLinear(maxGainDB)

// Gain applies a smoothed multiplicative gain to the signal.
//
// The target is written from the control context with SetGainDB or
// SetGainLinear and read once per block by the processing path, which
// ramps toward it with a short exponential smoother so gain changes do
// not click. Given a fixed target and block size the output is
// deterministic.
type Gain struct {
	target atomic.Uint64 // linear gain as float64 bits
	sm     smooth.Smoother
}

// NewGain creates a gain stage at unity (0 dB).
func NewGain() *Gain {
	g := &Gain{}
	g.target.Store(math.Float64bits(1))
	return g
}

// SetGainDB sets the target gain in decibels, clamped to [-60, +24].
// Non-finite values are ignored. Safe to call while Process runs.
func (g *Gain) SetGainDB(db float64) {
	if !core.IsFinite(db) {
		return
	}
	db = core.Clamp(db, minGainDB, maxGainDB)
	g.storeTarget(core.DBToLinear(db))
}

// SetGainLinear sets the target gain as a linear factor, clamped to
// the same range as SetGainDB. Non-finite values are ignored.
func (g *Gain) SetGainLinear(gain float64) {
	if !core.IsFinite(gain) {
		return
	}
	g.storeTarget(gain)
}

func (g *Gain) storeTarget(gain float64) {
	gain = core.Clamp(gain, minGainLinear, maxGainLinear)
	g.target.Store(math.Float64bits(gain))
}

// GainDB returns the current target gain in decibels.
func (g *Gain) GainDB() float64 {
	return core.LinearToDB(g.loadTarget())
}

func (g *Gain) loadTarget() float64 {
	return math.Float64frombits(g.target.Load())
}

// Prepare sizes the smoother for the sample rate and snaps it to the
// current target so the first block does not ramp from a stale value.
func (g *Gain) Prepare(sampleRate float64, maxBlockSize int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("stages: sample rate must be positive: %v", sampleRate)
	}
	if maxBlockSize <= 0 {
		return fmt.Errorf("stages: max block size must be positive: %d", maxBlockSize)
	}
	g.sm.Prepare(sampleRate, gainSmoothingMs)
	g.sm.Snap(g.loadTarget())
	return nil
}

// Process scales the block in place. The target is read once per
// call; once the smoother has converged the whole block is scaled in
// a single pass, otherwise the gain ramps per sample.
func (g *Gain) Process(buf []float64) {
	target := g.loadTarget()
	g.sm.SetTarget(target)
	if g.sm.Settled() {
		vecmath.ScaleBlockInPlace(buf, target)
		return
	}
	for i := range buf {
		buf[i] *= g.sm.Next()
	}
}

// Reset snaps the smoother to the current target. The stage has no
// signal memory, so a reset never produces an audible ramp.
func (g *Gain) Reset() {
	g.sm.Snap(g.loadTarget())
}
