package envelope

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-rig/internal/testutil"
)

func TestNewFollowerDefaults(t *testing.T) {
	f, err := NewFollower(48000)
	if err != nil {
		t.Fatalf("NewFollower() error = %v", err)
	}

	if f.Attack() != 5 {
		t.Fatalf("Attack() = %v, want 5", f.Attack())
	}
	if f.Release() != 100 {
		t.Fatalf("Release() = %v, want 100", f.Release())
	}
	if f.Envelope() != 0 {
		t.Fatalf("Envelope() = %v, want 0", f.Envelope())
	}
}

func TestNewFollowerValidation(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		opts []FollowerOption
	}{
		{name: "zero sample rate", rate: 0},
		{name: "negative sample rate", rate: -48000},
		{name: "nan sample rate", rate: math.NaN()},
		{name: "attack too short", rate: 48000, opts: []FollowerOption{WithAttack(0.01)}},
		{name: "attack too long", rate: 48000, opts: []FollowerOption{WithAttack(1000)}},
		{name: "release too short", rate: 48000, opts: []FollowerOption{WithRelease(0.5)}},
		{name: "high-pass out of range", rate: 48000, opts: []FollowerOption{WithHighPassCutoff(10)}},
		{name: "low-pass out of range", rate: 48000, opts: []FollowerOption{WithLowPassCutoff(100)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFollower(tt.rate, tt.opts...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestFollowerRisesAndReleases(t *testing.T) {
	const sampleRate = 48000

	f, err := NewFollower(sampleRate)
	if err != nil {
		t.Fatalf("NewFollower() error = %v", err)
	}

	// 100 ms of a 1 kHz tone at 0.8 takes the detector well past half
	// amplitude given the 5 ms attack.
	burst := testutil.DeterministicSine(1000, sampleRate, 0.8, 4800)
	afterBurst := f.Analyze(burst)
	if afterBurst < 0.5 || afterBurst > 1 {
		t.Fatalf("envelope after burst = %v, want in [0.5, 1]", afterBurst)
	}

	// 50 ms of silence only halves-ish the level at a 100 ms release.
	shortSilence := make([]float64, 2400)
	afterShort := f.Analyze(shortSilence)
	if afterShort < 0.3 {
		t.Fatalf("envelope after 50 ms silence = %v, want release slower", afterShort)
	}
	if afterShort >= afterBurst {
		t.Fatalf("envelope did not release: %v >= %v", afterShort, afterBurst)
	}

	// A full second of silence drains it.
	longSilence := make([]float64, sampleRate)
	afterLong := f.Analyze(longSilence)
	if afterLong > 0.02 {
		t.Fatalf("envelope after 1 s silence = %v, want near 0", afterLong)
	}
}

func TestFollowerOutputClamped(t *testing.T) {
	f, err := NewFollower(48000)
	if err != nil {
		t.Fatalf("NewFollower() error = %v", err)
	}

	hot := testutil.DeterministicSine(1000, 48000, 2.5, 9600)
	for i := 0; i < 10; i++ {
		env := f.Analyze(hot)
		if env < 0 || env > 1 {
			t.Fatalf("envelope = %v, want in [0, 1]", env)
		}
	}
}

func TestFollowerDoesNotModifyInput(t *testing.T) {
	f, err := NewFollower(48000)
	if err != nil {
		t.Fatalf("NewFollower() error = %v", err)
	}

	in := testutil.DeterministicNoise(42, 0.9, 1024)
	ref := make([]float64, len(in))
	copy(ref, in)

	f.Analyze(in)

	for i := range in {
		if in[i] != ref[i] {
			t.Fatalf("input modified at %d: %v != %v", i, in[i], ref[i])
		}
	}
}

func TestFollowerHighPassRejectsDC(t *testing.T) {
	const sampleRate = 48000

	f, err := NewFollower(sampleRate)
	if err != nil {
		t.Fatalf("NewFollower() error = %v", err)
	}

	dc := testutil.DC(0.5, sampleRate)
	env := f.Analyze(dc)
	if env > 0.01 {
		t.Fatalf("envelope on sustained DC = %v, want near 0", env)
	}
}

func TestFollowerLowPassSoftensTransients(t *testing.T) {
	const sampleRate = 48000

	plain, err := NewFollower(sampleRate)
	if err != nil {
		t.Fatalf("NewFollower() error = %v", err)
	}

	filtered, err := NewFollower(sampleRate, WithLowPassCutoff(4000))
	if err != nil {
		t.Fatalf("NewFollower() error = %v", err)
	}

	// A high tone above the low-pass corner reads lower through the
	// filtered detector.
	tone := testutil.DeterministicSine(12000, sampleRate, 0.8, 4800)
	envPlain := plain.Analyze(tone)
	envFiltered := filtered.Analyze(tone)

	if envFiltered >= envPlain {
		t.Fatalf("low-pass detector = %v, plain = %v; want lower", envFiltered, envPlain)
	}
}

func TestFollowerSetTimes(t *testing.T) {
	f, err := NewFollower(48000)
	if err != nil {
		t.Fatalf("NewFollower() error = %v", err)
	}

	if err := f.SetAttack(20); err != nil {
		t.Fatalf("SetAttack() error = %v", err)
	}
	if err := f.SetRelease(500); err != nil {
		t.Fatalf("SetRelease() error = %v", err)
	}
	if f.Attack() != 20 || f.Release() != 500 {
		t.Fatalf("times = %v/%v, want 20/500", f.Attack(), f.Release())
	}

	if err := f.SetAttack(math.NaN()); err == nil {
		t.Fatal("expected error for NaN attack")
	}
	if err := f.SetRelease(0); err == nil {
		t.Fatal("expected error for zero release")
	}
}

func TestFollowerReset(t *testing.T) {
	f, err := NewFollower(48000)
	if err != nil {
		t.Fatalf("NewFollower() error = %v", err)
	}

	f.Analyze(testutil.Ones(4800))
	if f.Envelope() == 0 {
		t.Fatal("expected non-zero envelope before reset")
	}

	f.Reset()
	if f.Envelope() != 0 {
		t.Fatalf("Envelope() after Reset = %v, want 0", f.Envelope())
	}
}
