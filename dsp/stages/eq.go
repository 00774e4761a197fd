package stages

import (
	"fmt"

	"github.com/cwbudde/algo-rig/dsp/filter/biquad"
	"github.com/cwbudde/algo-rig/dsp/filter/design"
	"github.com/cwbudde/algo-rig/dsp/params"
)

const numEQBands = 3

// eqBandParams maps each band to its store keys.
var eqBandParams = [numEQBands]struct {
	freq, gain, q params.ID
}{
	{params.EQ1FreqHz, params.EQ1GainDB, params.EQ1Q},
	{params.EQ2FreqHz, params.EQ2GainDB, params.EQ2Q},
	{params.EQ3FreqHz, params.EQ3GainDB, params.EQ3Q},
}

type eqBand struct {
	freqHz float64
	gainDB float64
	q      float64
}

// EQ is a three-band parametric equalizer driven by the parameter
// store. Each band runs one peaking biquad section. Settings are read
// once per block; coefficients are recomputed only for bands whose
// settings actually changed, and the retune carries filter state
// across the block boundary so sweeps stay click-free.
type EQ struct {
	store *params.Store
	chain *biquad.Chain

	sampleRate float64
	settings   [numEQBands]eqBand
	coeffs     [numEQBands]biquad.Coefficients
}

// NewEQ creates an equalizer reading its settings from store, which
// must not be nil.
func NewEQ(store *params.Store) *EQ {
	return &EQ{store: store}
}

// Prepare builds the filter sections from the current store settings.
func (e *EQ) Prepare(sampleRate float64, maxBlockSize int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("stages: sample rate must be positive: %v", sampleRate)
	}
	if maxBlockSize <= 0 {
		return fmt.Errorf("stages: max block size must be positive: %d", maxBlockSize)
	}

	e.sampleRate = sampleRate
	for i := range e.settings {
		e.settings[i] = eqBand{}
	}
	e.refreshSettings()
	e.chain = biquad.NewChain(e.coeffs[:])
	return nil
}

// Process filters the block in place, picking up store changes at the
// block boundary.
func (e *EQ) Process(buf []float64) {
	if e.refreshSettings() {
		e.chain.UpdateCoefficients(e.coeffs[:])
	}
	e.chain.ProcessBlock(buf)
}

// refreshSettings pulls band settings from the store and recomputes
// coefficients for changed bands. Reports whether any band changed.
func (e *EQ) refreshSettings() bool {
	changed := false
	for i := range eqBandParams {
		b := eqBand{
			freqHz: e.store.Get(eqBandParams[i].freq),
			gainDB: e.store.Get(eqBandParams[i].gain),
			q:      e.store.Get(eqBandParams[i].q),
		}
		if b == e.settings[i] {
			continue
		}
		e.settings[i] = b

		c := design.Peak(b.freqHz, b.gainDB, b.q, e.sampleRate)
		if c == (biquad.Coefficients{}) {
			// A band pushed to or past Nyquist becomes transparent
			// instead of silencing the chain.
			c = biquad.Coefficients{B0: 1}
		}
		e.coeffs[i] = c
		changed = true
	}
	return changed
}

// Reset clears the filter delay lines.
func (e *EQ) Reset() {
	if e.chain != nil {
		e.chain.Reset()
	}
}
