package stages

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-rig/dsp/params"
	"github.com/cwbudde/algo-rig/internal/testutil"
)

// runSineThroughEQ feeds one second of a sine through e in blocks and
// returns the peak level of the final 100 ms.
func runSineThroughEQ(t *testing.T, e *EQ, freqHz, amplitude float64) float64 {
	t.Helper()

	const sampleRate = 48000
	const blockSize = 240
	signal := testutil.DeterministicSine(freqHz, sampleRate, amplitude, sampleRate)
	for start := 0; start < len(signal); start += blockSize {
		e.Process(signal[start : start+blockSize])
	}

	peak := 0.0
	for _, v := range signal[len(signal)-4800:] {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

func TestEQFlatPassesThrough(t *testing.T) {
	store := params.NewStore()
	e := NewEQ(store)
	if err := e.Prepare(48000, 128); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	buf := testutil.DeterministicNoise(3, 1.0, 128)
	want := testutil.DeterministicNoise(3, 1.0, 128)
	e.Process(buf)

	testutil.RequireSliceNearlyEqual(t, buf, want, 1e-12)
}

func TestEQBoostAtCenterFrequency(t *testing.T) {
	store := params.NewStore()
	store.Set(params.EQ2GainDB, 12)

	e := NewEQ(store)
	if err := e.Prepare(48000, 240); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	// Band 2 defaults to 1 kHz; a peaking boost of 12 dB raises a
	// 1 kHz sine by the full amount.
	peak := runSineThroughEQ(t, e, 1000, 0.25)
	want := 0.25 * math.Pow(10, 12.0/20)
	if math.Abs(peak-want) > 0.025*want {
		t.Fatalf("boosted peak = %v, want %v within 2.5%%", peak, want)
	}
}

func TestEQCutAtCenterFrequency(t *testing.T) {
	store := params.NewStore()
	store.Set(params.EQ1GainDB, -12)

	e := NewEQ(store)
	if err := e.Prepare(48000, 240); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	peak := runSineThroughEQ(t, e, 100, 0.25)
	want := 0.25 * math.Pow(10, -12.0/20)
	if math.Abs(peak-want) > 0.03*want {
		t.Fatalf("cut peak = %v, want %v within 3%%", peak, want)
	}

	// Far out of band the same settings leave the level alone. 4 kHz
	// keeps the sample grid on the sine peaks (12 samples per cycle).
	e2 := NewEQ(store)
	if err := e2.Prepare(48000, 240); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	offBand := runSineThroughEQ(t, e2, 4000, 0.25)
	if math.Abs(offBand-0.25) > 0.02*0.25 {
		t.Fatalf("off-band peak = %v, want 0.25 within 2%%", offBand)
	}
}

func TestEQRetuneIsClickFree(t *testing.T) {
	store := params.NewStore()
	e := NewEQ(store)
	if err := e.Prepare(48000, 240); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	signal := testutil.DeterministicSine(1000, 48000, 0.5, 4800)
	for start := 0; start < len(signal); start += 240 {
		if start == 2400 {
			store.Set(params.EQ2GainDB, 12)
		}
		e.Process(signal[start : start+240])
	}

	// A 1 kHz sine rising to 12 dB boost moves by well under 0.35
	// per sample; a cleared delay line would step discontinuously.
	for i := 1; i < len(signal); i++ {
		if jump := math.Abs(signal[i] - signal[i-1]); jump > 0.35 {
			t.Fatalf("discontinuity at %d: jump %v", i, jump)
		}
	}
}

func TestEQBandAtNyquistIsBypassed(t *testing.T) {
	store := params.NewStore()
	store.Set(params.EQ3FreqHz, 20000)
	store.Set(params.EQ3GainDB, 24)

	// 20 kHz is past the 11.025 kHz Nyquist limit at this rate; the
	// band must turn transparent rather than blow up or mute.
	e := NewEQ(store)
	if err := e.Prepare(22050, 128); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	buf := testutil.DeterministicNoise(9, 0.5, 128)
	want := testutil.DeterministicNoise(9, 0.5, 128)
	e.Process(buf)

	testutil.RequireSliceNearlyEqual(t, buf, want, 1e-12)
}

func TestEQResetClearsFilterState(t *testing.T) {
	store := params.NewStore()
	store.Set(params.EQ2GainDB, 12)

	e := NewEQ(store)
	if err := e.Prepare(48000, 128); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	e.Process(testutil.DeterministicNoise(5, 1.0, 128))
	e.Reset()

	buf := make([]float64, 128)
	e.Process(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("buf[%d] = %v after reset, want 0", i, v)
		}
	}
}

func TestEQPrepareValidation(t *testing.T) {
	e := NewEQ(params.NewStore())
	if err := e.Prepare(0, 128); err == nil {
		t.Error("Prepare(0, 128) expected error")
	}
	if err := e.Prepare(48000, 0); err == nil {
		t.Error("Prepare(48000, 0) expected error")
	}
}
