package stages

import (
	"math"
	"sync"
	"testing"

	"github.com/cwbudde/algo-rig/internal/testutil"
)

// scaleResource multiplies by a fixed factor and records what it saw.
type scaleResource struct {
	factor float64
	inDB   float64
	outDB  float64
	hasIn  bool
	hasOut bool

	blocks  int
	maxSeen float64
}

func (r *scaleResource) ProcessBlock(buf []float64) {
	r.blocks++
	for i := range buf {
		if a := math.Abs(buf[i]); a > r.maxSeen {
			r.maxSeen = a
		}
		buf[i] *= r.factor
	}
}

func (r *scaleResource) InputCalibrationDB() (float64, bool)  { return r.inDB, r.hasIn }
func (r *scaleResource) OutputCalibrationDB() (float64, bool) { return r.outDB, r.hasOut }

func TestSwappableNoResourcePassthrough(t *testing.T) {
	s := NewSwappable()
	if err := s.Prepare(48000, 64); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	buf := testutil.DeterministicNoise(7, 1.0, 64)
	want := testutil.DeterministicNoise(7, 1.0, 64)
	s.Process(buf)

	testutil.RequireSliceEqual(t, buf, want)
}

func TestSwappableAdoptsPendingAtBlockStart(t *testing.T) {
	s := NewSwappable()
	if err := s.Prepare(48000, 32); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	res := &scaleResource{factor: 2}
	s.Load(res)

	buf := testutil.Ones(32)
	s.Process(buf)

	for i, v := range buf {
		if v != 2 {
			t.Fatalf("buf[%d] = %v, want 2", i, v)
		}
	}
	if s.Active() != res {
		t.Error("Active() does not report the loaded resource")
	}
	if res.blocks != 1 {
		t.Errorf("resource processed %d blocks, want 1", res.blocks)
	}
}

func TestSwappableCalibrationGains(t *testing.T) {
	s := NewSwappable()
	if err := s.Prepare(48000, 16); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	res := &scaleResource{factor: 1, inDB: 6, hasIn: true, outDB: -6, hasOut: true}
	s.Load(res)

	buf := testutil.Ones(16)
	s.Process(buf)

	// The resource sees the input boosted by 6 dB.
	wantSeen := math.Pow(10, 6.0/20)
	if math.Abs(res.maxSeen-wantSeen) > 1e-9 {
		t.Errorf("resource saw peak %v, want %v", res.maxSeen, wantSeen)
	}
	// The output offset undoes the input offset.
	for i, v := range buf {
		if math.Abs(v-1) > 1e-12 {
			t.Fatalf("buf[%d] = %v, want 1", i, v)
		}
	}
}

func TestSwappableLoadSupersedesPending(t *testing.T) {
	s := NewSwappable()
	if err := s.Prepare(48000, 8); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	a := &scaleResource{factor: 2}
	b := &scaleResource{factor: 3}
	s.Load(a)
	s.Load(b)

	buf := testutil.Ones(8)
	s.Process(buf)

	if s.Active() != b {
		t.Error("Active() should be the most recently loaded resource")
	}
	if a.blocks != 0 {
		t.Errorf("superseded resource processed %d blocks, want 0", a.blocks)
	}
	for i, v := range buf {
		if v != 3 {
			t.Fatalf("buf[%d] = %v, want 3", i, v)
		}
	}
}

func TestSwappableUnloadRestoresPassthrough(t *testing.T) {
	s := NewSwappable()
	if err := s.Prepare(48000, 32); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	s.Load(&scaleResource{factor: 2, inDB: 3, hasIn: true})
	work := testutil.Ones(32)
	s.Process(work)

	s.Unload()
	buf := testutil.DeterministicNoise(11, 0.8, 32)
	want := testutil.DeterministicNoise(11, 0.8, 32)
	s.Process(buf)

	testutil.RequireSliceEqual(t, buf, want)
	if s.Active() != nil {
		t.Error("Active() should be nil after unload")
	}
}

func TestSwappableLoadNilActsAsUnload(t *testing.T) {
	s := NewSwappable()
	if err := s.Prepare(48000, 16); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	s.Load(&scaleResource{factor: 2})
	s.Process(testutil.Ones(16))
	s.Load(nil)

	buf := testutil.Ones(16)
	want := testutil.Ones(16)
	s.Process(buf)

	testutil.RequireSliceEqual(t, buf, want)
}

// Swaps must only take effect at block boundaries: under concurrent
// loads every output block is uniformly scaled by a single factor.
func TestSwappableSwapOnlyAtBlockBoundary(t *testing.T) {
	s := NewSwappable()
	if err := s.Prepare(48000, 32); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	const blocks = 500

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range blocks {
			if i%2 == 0 {
				s.Load(&scaleResource{factor: 2})
			} else {
				s.Load(&scaleResource{factor: 3})
			}
		}
	}()

	for range blocks {
		buf := testutil.Ones(32)
		s.Process(buf)

		first := buf[0]
		if first != 1 && first != 2 && first != 3 {
			t.Fatalf("unexpected block scale %v", first)
		}
		for i, v := range buf {
			if v != first {
				t.Fatalf("scale changed mid-block at %d: %v vs %v", i, v, first)
			}
		}
	}

	wg.Wait()
}

func TestSwappablePrepareValidation(t *testing.T) {
	s := NewSwappable()
	if err := s.Prepare(0, 64); err == nil {
		t.Error("Prepare(0, 64) expected error")
	}
	if err := s.Prepare(48000, -1); err == nil {
		t.Error("Prepare(48000, -1) expected error")
	}
}
