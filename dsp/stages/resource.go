package stages

import (
	"fmt"

	"github.com/cwbudde/algo-rig/dsp/conv"
)

// MaxIRSamples bounds loadable impulse responses to one second at
// 48 kHz. Longer responses cost more than a live rig can spend.
const MaxIRSamples = 48000

// ConvolverResource adapts a partitioned convolution engine to the
// Resource contract, with optional input and output calibration
// offsets. It is the payload type loaded into a Swappable stage for
// impulse-response based amp and cabinet models.
type ConvolverResource struct {
	engine *conv.UniformPartitioned

	inDB     float64
	outDB    float64
	hasInDB  bool
	hasOutDB bool
}

// NewConvolverResource builds a resource convolving with ir, sized
// for blocks up to blockSize samples. The impulse response is limited
// to one second at 48 kHz.
func NewConvolverResource(ir []float64, blockSize int) (*ConvolverResource, error) {
	if len(ir) == 0 {
		return nil, fmt.Errorf("stages: impulse response is empty")
	}
	if len(ir) > MaxIRSamples {
		return nil, fmt.Errorf("stages: impulse response length %d exceeds maximum %d", len(ir), MaxIRSamples)
	}

	engine, err := conv.NewUniformPartitioned(ir, blockSize)
	if err != nil {
		return nil, fmt.Errorf("stages: build convolution engine: %w", err)
	}
	return &ConvolverResource{engine: engine}, nil
}

// SetInputCalibrationDB records the input level offset the resource
// recommends. Call before handing the resource to a Swappable stage.
func (r *ConvolverResource) SetInputCalibrationDB(db float64) {
	r.inDB = db
	r.hasInDB = true
}

// SetOutputCalibrationDB records the recommended output level offset.
func (r *ConvolverResource) SetOutputCalibrationDB(db float64) {
	r.outDB = db
	r.hasOutDB = true
}

// ProcessBlock convolves the block in place.
func (r *ConvolverResource) ProcessBlock(buf []float64) {
	if err := r.engine.ProcessBlockTo(buf, buf); err != nil {
		// Equal lengths cannot mismatch; nothing else can fail here.
		return
	}
}

// InputCalibrationDB returns the recommended input offset, if set.
func (r *ConvolverResource) InputCalibrationDB() (float64, bool) {
	return r.inDB, r.hasInDB
}

// OutputCalibrationDB returns the recommended output offset, if set.
func (r *ConvolverResource) OutputCalibrationDB() (float64, bool) {
	return r.outDB, r.hasOutDB
}

// Latency returns the convolution engine's delay in samples.
func (r *ConvolverResource) Latency() int {
	return r.engine.Latency()
}
