// Package envelope provides the peak envelope follower that drives
// level-dependent control decisions. The detector reads a block without
// modifying it and reports a smoothed level in [0, 1].
package envelope

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-rig/dsp/core"
)

const (
	defaultAttackMs   = 5.0
	defaultReleaseMs  = 100.0
	defaultHighPassHz = 100.0
	defaultLowPassHz  = 6000.0

	minAttackMs   = 0.1
	maxAttackMs   = 500.0
	minReleaseMs  = 1.0
	maxReleaseMs  = 5000.0
	minHighPassHz = 70.0
	maxHighPassHz = 150.0
	minLowPassHz  = 4000.0
	maxLowPassHz  = 8000.0
)

type followerConfig struct {
	attackMs       float64
	releaseMs      float64
	highPassHz     float64
	lowPassHz      float64
	lowPassEnabled bool
}

// FollowerOption configures a Follower at construction time.
type FollowerOption func(*followerConfig) error

// WithAttack sets the detector attack time in milliseconds.
func WithAttack(ms float64) FollowerOption {
	return func(cfg *followerConfig) error {
		if ms < minAttackMs || ms > maxAttackMs || !core.IsFinite(ms) {
			return fmt.Errorf("envelope attack must be in [%v, %v] ms: %f", minAttackMs, maxAttackMs, ms)
		}

		cfg.attackMs = ms

		return nil
	}
}

// WithRelease sets the detector release time in milliseconds.
func WithRelease(ms float64) FollowerOption {
	return func(cfg *followerConfig) error {
		if ms < minReleaseMs || ms > maxReleaseMs || !core.IsFinite(ms) {
			return fmt.Errorf("envelope release must be in [%v, %v] ms: %f", minReleaseMs, maxReleaseMs, ms)
		}

		cfg.releaseMs = ms

		return nil
	}
}

// WithHighPassCutoff sets the detection-path high-pass cutoff that keeps
// low-frequency energy from pumping the envelope.
func WithHighPassCutoff(hz float64) FollowerOption {
	return func(cfg *followerConfig) error {
		if hz < minHighPassHz || hz > maxHighPassHz || !core.IsFinite(hz) {
			return fmt.Errorf("envelope high-pass cutoff must be in [%v, %v] Hz: %f", minHighPassHz, maxHighPassHz, hz)
		}

		cfg.highPassHz = hz

		return nil
	}
}

// WithLowPassCutoff sets the optional detection-path low-pass cutoff and
// enables the filter.
func WithLowPassCutoff(hz float64) FollowerOption {
	return func(cfg *followerConfig) error {
		if hz < minLowPassHz || hz > maxLowPassHz || !core.IsFinite(hz) {
			return fmt.Errorf("envelope low-pass cutoff must be in [%v, %v] Hz: %f", minLowPassHz, maxLowPassHz, hz)
		}

		cfg.lowPassHz = hz
		cfg.lowPassEnabled = true

		return nil
	}
}

// Follower is a peak detector with independent attack and release, fed
// through detection-only prefilters. The filters shape what the detector
// hears; the audio path never passes through them.
type Follower struct {
	sampleRate float64

	attackMs     float64
	releaseMs    float64
	attackCoeff  float64
	releaseCoeff float64

	highPassHz     float64
	lowPassHz      float64
	lowPassEnabled bool
	hpPole         onePole
	lpPole         onePole

	envelope float64
}

// NewFollower creates a follower for the given sample rate. Defaults:
// 5 ms attack, 100 ms release, 100 Hz high-pass, low-pass disabled.
func NewFollower(sampleRate float64, opts ...FollowerOption) (*Follower, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("sample rate must be positive and finite: %f", sampleRate)
	}

	cfg := followerConfig{
		attackMs:   defaultAttackMs,
		releaseMs:  defaultReleaseMs,
		highPassHz: defaultHighPassHz,
		lowPassHz:  defaultLowPassHz,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	f := &Follower{
		sampleRate:     sampleRate,
		attackMs:       cfg.attackMs,
		releaseMs:      cfg.releaseMs,
		highPassHz:     cfg.highPassHz,
		lowPassHz:      cfg.lowPassHz,
		lowPassEnabled: cfg.lowPassEnabled,
	}
	f.recalculate()

	return f, nil
}

// SetSampleRate reconfigures the follower for a new rate, preserving the
// configured times and cutoffs.
func (f *Follower) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return fmt.Errorf("sample rate must be positive and finite: %f", sampleRate)
	}

	f.sampleRate = sampleRate
	f.recalculate()

	return nil
}

// SetAttack sets the attack time in milliseconds.
func (f *Follower) SetAttack(ms float64) error {
	if ms < minAttackMs || ms > maxAttackMs || !core.IsFinite(ms) {
		return fmt.Errorf("envelope attack must be in [%v, %v] ms: %f", minAttackMs, maxAttackMs, ms)
	}

	f.attackMs = ms
	f.attackCoeff = 1.0 - math.Exp(-math.Ln2/(ms*0.001*f.sampleRate))

	return nil
}

// SetRelease sets the release time in milliseconds.
func (f *Follower) SetRelease(ms float64) error {
	if ms < minReleaseMs || ms > maxReleaseMs || !core.IsFinite(ms) {
		return fmt.Errorf("envelope release must be in [%v, %v] ms: %f", minReleaseMs, maxReleaseMs, ms)
	}

	f.releaseMs = ms
	f.releaseCoeff = math.Exp(-math.Ln2 / (ms * 0.001 * f.sampleRate))

	return nil
}

// Attack returns the attack time in milliseconds.
func (f *Follower) Attack() float64 { return f.attackMs }

// Release returns the release time in milliseconds.
func (f *Follower) Release() float64 { return f.releaseMs }

// Envelope returns the detector level after the last Analyze call,
// clamped to [0, 1].
func (f *Follower) Envelope() float64 {
	return core.Clamp(f.envelope, 0, 1)
}

// Analyze advances the detector over one block and returns the envelope
// in [0, 1]. The input is read only, never modified. Real-time safe.
func (f *Follower) Analyze(buf []float64) float64 {
	env := f.envelope
	for _, x := range buf {
		detect := x - f.hpPole.process(x)
		if f.lowPassEnabled {
			detect = f.lpPole.process(detect)
		}

		source := math.Abs(detect)
		if source > env {
			env += (source - env) * f.attackCoeff
		} else {
			env = source + (env-source)*f.releaseCoeff
		}
	}

	f.envelope = core.FlushDenormals(env)

	return core.Clamp(f.envelope, 0, 1)
}

// Reset clears the detector and prefilter state.
func (f *Follower) Reset() {
	f.envelope = 0
	f.hpPole.reset()
	f.lpPole.reset()
}

func (f *Follower) recalculate() {
	f.attackCoeff = 1.0 - math.Exp(-math.Ln2/(f.attackMs*0.001*f.sampleRate))
	f.releaseCoeff = math.Exp(-math.Ln2 / (f.releaseMs * 0.001 * f.sampleRate))
	f.hpPole.configure(f.highPassHz, f.sampleRate)
	f.lpPole.configure(f.lowPassHz, f.sampleRate)
}

// onePole is the shared first-order smoothing primitive behind both
// detection prefilters: used directly as a low-pass, subtracted from the
// input as a high-pass.
type onePole struct {
	alpha float64
	state float64
}

func (p *onePole) configure(cutoffHz, sampleRate float64) {
	p.alpha = 1.0 - math.Exp(-2.0*math.Pi*cutoffHz/sampleRate)
}

func (p *onePole) process(x float64) float64 {
	p.state += p.alpha * (x - p.state)

	return p.state
}

func (p *onePole) reset() {
	p.state = 0
}
