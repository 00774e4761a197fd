package stages

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-rig/dsp/core"
	"github.com/cwbudde/algo-rig/dsp/params"
)

const (
	reverbFixedGain = 0.015

	// Freeverb maps the unit room and damping controls onto stable
	// comb feedback and damping coefficients.
	reverbRoomScale  = 0.28
	reverbRoomOffset = 0.7
	reverbDampScale  = 0.4
)

// Classic Freeverb delay tunings, calibrated for 44.1 kHz and scaled
// to the prepared rate.
var (
	reverbCombTunings    = [...]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	reverbAllpassTunings = [...]int{556, 441, 341, 225}
)

// Reverb is a Schroeder/Freeverb-style reverb stage: a bank of
// damped feedback combs in parallel followed by a short series of
// allpasses. Room size, damping, and wet mix come from the parameter
// store and are picked up at block boundaries; the dry path fades out
// as the wet mix rises, so the default wet level of zero leaves the
// signal untouched.
type Reverb struct {
	store *params.Store

	combs     [len(reverbCombTunings)]reverbComb
	allpasses [len(reverbAllpassTunings)]reverbAllpass

	// Applied settings, compared against the store each block.
	roomSize float64
	damping  float64
	wet      float64
	dry      float64
}

type reverbComb struct {
	feedback    float64
	filterStore float64
	dampA       float64
	dampB       float64
	buffer      []float64
	index       int
}

func (c *reverbComb) setDamp(v float64) {
	c.dampA = v
	c.dampB = 1 - v
}

func (c *reverbComb) process(input float64) float64 {
	output := c.buffer[c.index]
	c.filterStore = core.FlushDenormals(output*c.dampB + c.filterStore*c.dampA)
	c.buffer[c.index] = input + c.filterStore*c.feedback
	c.index++
	if c.index >= len(c.buffer) {
		c.index = 0
	}
	return output
}

func (c *reverbComb) reset() {
	for i := range c.buffer {
		c.buffer[i] = 0
	}
	c.index = 0
	c.filterStore = 0
}

type reverbAllpass struct {
	buffer []float64
	index  int
}

func (a *reverbAllpass) process(input float64) float64 {
	const feedback = 0.5
	bufOut := a.buffer[a.index]
	output := bufOut - input
	a.buffer[a.index] = core.FlushDenormals(input + bufOut*feedback)
	a.index++
	if a.index >= len(a.buffer) {
		a.index = 0
	}
	return output
}

func (a *reverbAllpass) reset() {
	for i := range a.buffer {
		a.buffer[i] = 0
	}
	a.index = 0
}

// NewReverb creates a reverb reading its settings from store, which
// must not be nil.
func NewReverb(store *params.Store) *Reverb {
	return &Reverb{store: store}
}

// Prepare sizes the delay lines for the sample rate and applies the
// current store settings.
func (r *Reverb) Prepare(sampleRate float64, maxBlockSize int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("stages: sample rate must be positive: %v", sampleRate)
	}
	if maxBlockSize <= 0 {
		return fmt.Errorf("stages: max block size must be positive: %d", maxBlockSize)
	}

	for i, tuning := range reverbCombTunings {
		r.combs[i] = reverbComb{buffer: make([]float64, scaleTuning(tuning, sampleRate))}
	}
	for i, tuning := range reverbAllpassTunings {
		r.allpasses[i] = reverbAllpass{buffer: make([]float64, scaleTuning(tuning, sampleRate))}
	}

	// Force the first refresh to apply everything.
	r.roomSize = -1
	r.damping = -1
	r.wet = -1
	r.refreshSettings()
	return nil
}

func scaleTuning(tuning int, sampleRate float64) int {
	scaled := int(math.Round(float64(tuning) * sampleRate / 44100))
	if scaled < 1 {
		scaled = 1
	}
	return scaled
}

// Process applies the reverb in place.
func (r *Reverb) Process(buf []float64) {
	r.refreshSettings()

	for i := range buf {
		x := buf[i]
		in := x * reverbFixedGain

		var acc float64
		for c := range r.combs {
			acc += r.combs[c].process(in)
		}
		for a := range r.allpasses {
			acc = r.allpasses[a].process(acc)
		}

		buf[i] = acc*r.wet + x*r.dry
	}
}

func (r *Reverb) refreshSettings() {
	room := r.store.Get(params.ReverbRoomSize)
	damp := r.store.Get(params.ReverbDamping)
	wet := r.store.Get(params.ReverbWet)

	if room != r.roomSize {
		r.roomSize = room
		feedback := reverbRoomOffset + reverbRoomScale*room
		for i := range r.combs {
			r.combs[i].feedback = feedback
		}
	}
	if damp != r.damping {
		r.damping = damp
		for i := range r.combs {
			r.combs[i].setDamp(damp * reverbDampScale)
		}
	}
	if wet != r.wet {
		r.wet = wet
		r.dry = 1 - wet
	}
}

// Reset clears all delay and filter state.
func (r *Reverb) Reset() {
	for i := range r.combs {
		r.combs[i].reset()
	}
	for i := range r.allpasses {
		r.allpasses[i].reset()
	}
}
