package stages

import (
	"fmt"

	"github.com/cwbudde/algo-rig/dsp/core"
	vecmath "github.com/cwbudde/algo-vecmath"
)

// Resource is a heavyweight processing payload hosted by a Swappable
// stage, typically a convolution engine or captured amp model loaded
// from disk. Construction always happens off the processing path; a
// Resource handed to Swappable.Load must be immediately usable for
// blocks up to the length the stage was prepared with.
//
// A Resource is not required to support clearing its internal history.
// Swappable.Reset therefore leaves it untouched.
type Resource interface {
	// ProcessBlock transforms the block in place.
	ProcessBlock(buf []float64)

	// InputCalibrationDB returns the recommended input level offset in
	// decibels, if the resource provides one.
	InputCalibrationDB() (float64, bool)

	// OutputCalibrationDB returns the recommended output level offset
	// in decibels, if the resource provides one.
	OutputCalibrationDB() (float64, bool)
}

// pendingSwap is a staged resource exchange. A nil res unloads.
type pendingSwap struct {
	res Resource
}

// Swappable hosts a Resource that can be replaced while audio runs.
//
// Load and Unload stage a fully built replacement from the control
// context; Process adopts it at the start of the next block, so the
// active resource never changes mid-block and the processing path
// never waits on a load. With no resource active the stage is a
// transparent passthrough.
type Swappable struct {
	cell swapCell[pendingSwap]

	// Owned by the processing context after the first Process call.
	active  Resource
	inGain  float64
	outGain float64
}

// NewSwappable creates a stage with no resource loaded.
func NewSwappable() *Swappable {
	return &Swappable{inGain: 1, outGain: 1}
}

// Load stages res to become the active resource at the start of the
// next processed block. Staging again before the previous resource
// was adopted supersedes it. Control context only.
func (s *Swappable) Load(res Resource) {
	s.cell.publish(&pendingSwap{res: res})
}

// Unload stages removal of the active resource. Once adopted, the
// stage passes audio through untouched.
func (s *Swappable) Unload() {
	s.cell.publish(&pendingSwap{})
}

// Active returns the resource currently applied by Process. It is
// only meaningful from the context driving Process, or while no
// processing is running.
func (s *Swappable) Active() Resource {
	return s.active
}

// Prepare validates the processing format. The hosted resource is
// built for a specific block length by its loader, so the stage
// itself keeps no per-rate state.
func (s *Swappable) Prepare(sampleRate float64, maxBlockSize int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("stages: sample rate must be positive: %v", sampleRate)
	}
	if maxBlockSize <= 0 {
		return fmt.Errorf("stages: max block size must be positive: %d", maxBlockSize)
	}
	return nil
}

// Process first adopts a staged swap if one is pending, then runs the
// active resource on the block, bracketed by the calibration gains
// the resource recommends. The swap step is a pointer exchange plus
// two decibel conversions, bounded and at most once per block.
func (s *Swappable) Process(buf []float64) {
	if p := s.cell.take(); p != nil {
		s.active = p.res
		s.refreshCalibration()
	}

	if s.active == nil {
		return
	}

	if s.inGain != 1 {
		vecmath.ScaleBlockInPlace(buf, s.inGain)
	}
	s.active.ProcessBlock(buf)
	if s.outGain != 1 {
		vecmath.ScaleBlockInPlace(buf, s.outGain)
	}
}

func (s *Swappable) refreshCalibration() {
	s.inGain = 1
	s.outGain = 1
	if s.active == nil {
		return
	}
	if db, ok := s.active.InputCalibrationDB(); ok && core.IsFinite(db) {
		s.inGain = core.DBToLinear(core.Clamp(db, minGainDB, maxGainDB))
	}
	if db, ok := s.active.OutputCalibrationDB(); ok && core.IsFinite(db) {
		s.outGain = core.DBToLinear(core.Clamp(db, minGainDB, maxGainDB))
	}
}

// Reset is a no-op. The stage owns no signal buffers, and clearing
// the resource's internal history is outside the Resource contract.
func (s *Swappable) Reset() {}
