package stages

import (
	"fmt"
	"sync"

	"github.com/cwbudde/algo-rig/dsp/conv"
)

// pendingIR is a staged engine exchange. A nil engine clears
// convolution.
type pendingIR struct {
	engine *conv.UniformPartitioned
}

// Convolver convolves the signal with a loadable impulse response,
// typically a cabinet capture. The response can be replaced while
// audio runs: SetImpulseResponse builds a fresh convolution engine
// off the processing path and stages it, and Process adopts it at the
// next block boundary. Adopting a new engine restarts the convolution
// history. With no response loaded the stage passes audio through
// untouched.
type Convolver struct {
	cell swapCell[pendingIR]

	engine *conv.UniformPartitioned // owned by the processing context

	mu           sync.Mutex // guards ir and the prepared format below
	ir           []float64
	sampleRate   float64
	maxBlockSize int
}

// NewConvolver creates a convolver with no impulse response loaded.
func NewConvolver() *Convolver {
	return &Convolver{}
}

// SetImpulseResponse stages ir as the new impulse response. Called
// before Prepare it only records the response; the engine is built
// and installed during Prepare. Called after Prepare it builds the
// engine immediately and stages it for the next block. The response
// is limited to one second at 48 kHz. Control context only.
func (c *Convolver) SetImpulseResponse(ir []float64) error {
	if len(ir) == 0 {
		return fmt.Errorf("stages: impulse response is empty")
	}
	if len(ir) > MaxIRSamples {
		return fmt.Errorf("stages: impulse response length %d exceeds maximum %d", len(ir), MaxIRSamples)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.ir = append(c.ir[:0], ir...)
	if c.maxBlockSize == 0 {
		return nil
	}

	engine, err := conv.NewUniformPartitioned(c.ir, c.maxBlockSize)
	if err != nil {
		return fmt.Errorf("stages: build convolution engine: %w", err)
	}
	c.cell.publish(&pendingIR{engine: engine})
	return nil
}

// ClearImpulseResponse removes the impulse response; once the change
// is adopted the stage passes audio through.
func (c *Convolver) ClearImpulseResponse() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ir = c.ir[:0]
	if c.maxBlockSize == 0 {
		return
	}
	c.cell.publish(&pendingIR{})
}

// Prepare sizes the engine for the processing format, rebuilding it
// from the recorded impulse response if one is loaded.
func (c *Convolver) Prepare(sampleRate float64, maxBlockSize int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("stages: sample rate must be positive: %v", sampleRate)
	}
	if maxBlockSize <= 0 {
		return fmt.Errorf("stages: max block size must be positive: %d", maxBlockSize)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sampleRate = sampleRate
	c.maxBlockSize = maxBlockSize

	// Anything staged was sized for the old format.
	c.cell.take()

	c.engine = nil
	if len(c.ir) > 0 {
		engine, err := conv.NewUniformPartitioned(c.ir, maxBlockSize)
		if err != nil {
			return fmt.Errorf("stages: build convolution engine: %w", err)
		}
		c.engine = engine
	}
	return nil
}

// Process convolves the block in place, adopting a staged engine
// first if one is pending.
func (c *Convolver) Process(buf []float64) {
	if p := c.cell.take(); p != nil {
		c.engine = p.engine
	}
	if c.engine == nil {
		return
	}
	if err := c.engine.ProcessBlockTo(buf, buf); err != nil {
		// Equal lengths cannot mismatch; nothing else can fail here.
		return
	}
}

// Reset clears the convolution history without reallocating.
func (c *Convolver) Reset() {
	if c.engine != nil {
		c.engine.Reset()
	}
}

// Latency returns the current engine delay in samples, or zero with
// no response loaded.
func (c *Convolver) Latency() int {
	if c.engine == nil {
		return 0
	}
	return c.engine.Latency()
}
