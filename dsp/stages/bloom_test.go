package stages

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-rig/dsp/chain"
	"github.com/cwbudde/algo-rig/dsp/params"
	"github.com/cwbudde/algo-rig/internal/testutil"
)

func newTestBloom(t *testing.T, store *params.Store) (*Bloom, *Gain, *Gain) {
	t.Helper()

	pre := NewGain()
	post := NewGain()
	if err := pre.Prepare(48000, 480); err != nil {
		t.Fatalf("pre Prepare() error = %v", err)
	}
	if err := post.Prepare(48000, 480); err != nil {
		t.Fatalf("post Prepare() error = %v", err)
	}

	b, err := NewBloom(store, pre, post, 2)
	if err != nil {
		t.Fatalf("NewBloom() error = %v", err)
	}
	if err := b.Prepare(48000, 480); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	return b, pre, post
}

// feedLoud drives the detector with a steady 1 kHz tone for blocks
// of 10 ms each.
func feedLoud(b *Bloom, blocks int) {
	for range blocks {
		b.PreProcess(testutil.DeterministicSine(1000, 48000, 0.9, 480))
	}
}

func TestBloomPreProcessDoesNotMutateInput(t *testing.T) {
	store := params.NewStore()
	b, _, _ := newTestBloom(t, store)

	buf := testutil.DeterministicNoise(17, 0.9, 480)
	want := testutil.DeterministicNoise(17, 0.9, 480)
	b.PreProcess(buf)

	testutil.RequireSliceEqual(t, buf, want)
}

func TestBloomDrivesGainsInOppositeDirections(t *testing.T) {
	store := params.NewStore()
	b, pre, post := newTestBloom(t, store)

	feedLoud(b, 20)
	b.BetweenStages(1, nil)
	b.BetweenStages(2, nil)

	env := b.Envelope()
	if env < 0.3 {
		t.Fatalf("Envelope() = %v after loud input, want a substantial level", env)
	}

	preDB := pre.GainDB()
	postDB := post.GainDB()
	if preDB >= 0 {
		t.Errorf("pre gain = %v dB, want below base under loud input", preDB)
	}
	if postDB <= 0 {
		t.Errorf("post gain = %v dB, want above base under loud input", postDB)
	}

	// Default depths are 6 dB down and 3 dB up from the same envelope.
	if math.Abs(preDB+2*postDB) > 1e-9 {
		t.Errorf("pre %v dB and post %v dB do not follow the 6:3 depth ratio", preDB, postDB)
	}
}

func TestBloomQuietInputStaysAtBase(t *testing.T) {
	store := params.NewStore()
	store.Set(params.BloomPreBaseDB, -4)
	store.Set(params.BloomPostBaseDB, 2)

	b, pre, post := newTestBloom(t, store)

	for range 10 {
		b.PreProcess(make([]float64, 480))
	}
	b.BetweenStages(1, nil)
	b.BetweenStages(2, nil)

	if got := pre.GainDB(); math.Abs(got-(-4)) > 1e-6 {
		t.Errorf("pre gain = %v dB on silence, want -4", got)
	}
	if got := post.GainDB(); math.Abs(got-2) > 1e-6 {
		t.Errorf("post gain = %v dB on silence, want 2", got)
	}
}

func TestBloomIgnoresOtherBoundaries(t *testing.T) {
	store := params.NewStore()
	b, pre, post := newTestBloom(t, store)

	pre.SetGainDB(-5)
	post.SetGainDB(5)

	feedLoud(b, 20)
	b.BetweenStages(0, nil)
	b.BetweenStages(3, nil)

	if got := pre.GainDB(); math.Abs(got-(-5)) > 1e-9 {
		t.Errorf("pre gain = %v dB, want untouched -5", got)
	}
	if got := post.GainDB(); math.Abs(got-5) > 1e-9 {
		t.Errorf("post gain = %v dB, want untouched 5", got)
	}
}

func TestBloomDepthsComeFromStore(t *testing.T) {
	store := params.NewStore()
	store.Set(params.BloomPreDepthDB, 12)

	b, pre, _ := newTestBloom(t, store)

	feedLoud(b, 20)
	b.BetweenStages(1, nil)

	want := -12 * b.Envelope()
	if got := pre.GainDB(); math.Abs(got-want) > 1e-9 {
		t.Errorf("pre gain = %v dB, want %v", got, want)
	}
}

func TestBloomDetectorTimesComeFromStore(t *testing.T) {
	fast := params.NewStore()
	fast.Set(params.EnvAttackMs, 0.1)
	bFast, _, _ := newTestBloom(t, fast)

	slow := params.NewStore()
	slow.Set(params.EnvAttackMs, 500)
	bSlow, _, _ := newTestBloom(t, slow)

	loud := testutil.DeterministicSine(1000, 48000, 0.9, 480)
	bFast.PreProcess(loud)
	bSlow.PreProcess(loud)

	if bFast.Envelope() <= bSlow.Envelope() {
		t.Errorf("fast attack envelope %v not above slow attack envelope %v",
			bFast.Envelope(), bSlow.Envelope())
	}
}

func TestBloomResetClearsEnvelope(t *testing.T) {
	store := params.NewStore()
	b, _, _ := newTestBloom(t, store)

	feedLoud(b, 10)
	if b.Envelope() == 0 {
		t.Fatal("envelope still zero after loud input")
	}

	b.Reset()
	if got := b.Envelope(); got != 0 {
		t.Errorf("Envelope() = %v after reset, want 0", got)
	}
}

func TestBloomValidation(t *testing.T) {
	store := params.NewStore()
	pre := NewGain()
	post := NewGain()

	if _, err := NewBloom(nil, pre, post, 2); err == nil {
		t.Error("nil store expected error")
	}
	if _, err := NewBloom(store, nil, post, 2); err == nil {
		t.Error("nil pre gain expected error")
	}
	if _, err := NewBloom(store, pre, nil, 2); err == nil {
		t.Error("nil post gain expected error")
	}
	if _, err := NewBloom(store, pre, post, 0); err == nil {
		t.Error("central index 0 expected error")
	}
}

func TestBloomInsidePipeline(t *testing.T) {
	store := params.NewStore()

	pre := NewGain()
	central := NewGain()
	post := NewGain()

	b, err := NewBloom(store, pre, post, 1)
	if err != nil {
		t.Fatalf("NewBloom() error = %v", err)
	}

	p := chain.NewPipeline()
	p.AddStage(pre)
	p.AddStage(central)
	p.AddStage(post)
	p.AddController(b)
	if err := p.Prepare(48000, 480); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	for range 20 {
		buf := testutil.DeterministicSine(1000, 48000, 0.9, 480)
		p.Process(buf)
		testutil.RequireFinite(t, buf)
	}

	if got := pre.GainDB(); got >= -0.5 {
		t.Errorf("pre gain = %v dB after loud input, want clearly below 0", got)
	}
	if got := post.GainDB(); got <= 0.25 {
		t.Errorf("post gain = %v dB after loud input, want clearly above 0", got)
	}
}
