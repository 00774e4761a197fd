package audiofile

import (
	"fmt"

	resampler "github.com/tphakala/go-audio-resampler"
	"gonum.org/v1/gonum/floats"
)

// Resample converts samples from one rate to another using the
// high-quality preset. Equal rates return a copy.
func Resample(samples []float64, fromRate, toRate float64) ([]float64, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("audiofile: sample rates must be positive: %v to %v", fromRate, toRate)
	}
	if fromRate == toRate {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}
	out, err := resampler.ResampleMono(samples, fromRate, toRate, resampler.QualityHigh)
	if err != nil {
		return nil, fmt.Errorf("audiofile: resample %v Hz to %v Hz: %w", fromRate, toRate, err)
	}
	return out, nil
}

// PrepareIR loads an impulse response file, brings it to sampleRate,
// trims it to at most maxSamples (0 keeps the full length) and scales
// it to unit energy, so swapping responses keeps loudness steady.
func PrepareIR(path string, sampleRate float64, maxSamples int) ([]float64, error) {
	clip, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	ir, err := Resample(clip.Samples, float64(clip.SampleRate), sampleRate)
	if err != nil {
		return nil, err
	}
	if maxSamples > 0 && len(ir) > maxSamples {
		ir = ir[:maxSamples]
	}
	if norm := floats.Norm(ir, 2); norm > 0 {
		floats.Scale(1/norm, ir)
	}
	return ir, nil
}
