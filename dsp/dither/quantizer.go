package dither

import (
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	defaultType      = Triangular
	defaultAmplitude = 1.0
	minBitDepth      = 1
	maxBitDepth      = 32
)

type config struct {
	ditherType Type
	amplitude  float64
	rng        *rand.Rand
}

// Option configures a [Quantizer].
type Option func(*config) error

// WithType sets the dither noise PDF (default [Triangular]).
func WithType(t Type) Option {
	return func(cfg *config) error {
		if !t.Valid() {
			return fmt.Errorf("dither: invalid dither type: %d", int(t))
		}

		cfg.ditherType = t

		return nil
	}
}

// WithAmplitude sets the dither noise amplitude in quantization steps
// (default 1.0, must be >= 0).
func WithAmplitude(amp float64) Option {
	return func(cfg *config) error {
		if amp < 0 || math.IsNaN(amp) || math.IsInf(amp, 0) {
			return fmt.Errorf("dither: amplitude must be >= 0 and finite: %f", amp)
		}

		cfg.amplitude = amp

		return nil
	}
}

// WithRNG sets a deterministic random number generator for
// reproducible output.
func WithRNG(rng *rand.Rand) Option {
	return func(cfg *config) error {
		cfg.rng = rng
		return nil
	}
}

// Quantizer converts samples in [-1, +1] to integers at a target bit
// depth, adding dither noise before rounding. Output integers are
// limited to the bit-depth range, so a 16-bit quantizer always yields
// values a WAV encoder accepts.
type Quantizer struct {
	bitDepth   int
	ditherType Type
	amplitude  float64
	rng        *rand.Rand

	// derived from bitDepth
	bitMul  float64
	bitDiv  float64
	limitLo int
	limitHi int
}

// NewQuantizer creates a quantizer for the given bit depth (1 to 32).
// The default configuration applies triangular dither of one
// quantization step.
func NewQuantizer(bitDepth int, opts ...Option) (*Quantizer, error) {
	if bitDepth < minBitDepth || bitDepth > maxBitDepth {
		return nil, fmt.Errorf("dither: bit depth must be in [%d, %d]: %d", minBitDepth, maxBitDepth, bitDepth)
	}

	cfg := config{
		ditherType: defaultType,
		amplitude:  defaultAmplitude,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	bitMul := math.Exp2(float64(bitDepth-1)) - 0.5

	return &Quantizer{
		bitDepth:   bitDepth,
		ditherType: cfg.ditherType,
		amplitude:  cfg.amplitude,
		rng:        cfg.rng,
		bitMul:     bitMul,
		bitDiv:     1.0 / bitMul,
		limitLo:    -int(math.Round(bitMul + 0.5)),
		limitHi:    int(math.Round(bitMul - 0.5)),
	}, nil
}

// ProcessInteger quantizes one sample (expected in [-1, +1]) to an
// integer in the bit-depth range.
func (q *Quantizer) ProcessInteger(input float64) int {
	scaled := q.bitMul*input + q.noise()
	result := int(math.Floor(scaled))

	return max(q.limitLo, min(q.limitHi, result))
}

// ProcessSample quantizes one sample and returns it re-normalized to
// the quantizer's mid-riser grid in approximately [-1, +1].
func (q *Quantizer) ProcessSample(input float64) float64 {
	return (float64(q.ProcessInteger(input)) + 0.5) * q.bitDiv
}

// noise draws one dither value in quantization steps.
func (q *Quantizer) noise() float64 {
	switch q.ditherType {
	case Rectangular:
		return q.amplitude * (q.rng.Float64()*2 - 1)
	case Triangular:
		return q.amplitude * (q.rng.Float64() - q.rng.Float64())
	default:
		return 0
	}
}

// BitDepth returns the target bit depth.
func (q *Quantizer) BitDepth() int { return q.bitDepth }

// DitherType returns the dither noise type.
func (q *Quantizer) DitherType() Type { return q.ditherType }

// Amplitude returns the dither noise amplitude in quantization steps.
func (q *Quantizer) Amplitude() float64 { return q.amplitude }
