package chain

import "fmt"

// Capacity bounds for a pipeline. Exceeding either is a configuration
// error and panics at registration time.
const (
	MaxStages      = 16
	MaxControllers = 4
)

// Pipeline runs an ordered set of stages with controller hooks before
// the chain and after every stage. Registration happens before Prepare;
// after Prepare the stage and controller lists are immutable, so the
// real-time Process walk touches only fixed arrays.
type Pipeline struct {
	stages    [MaxStages]Stage
	numStages int

	controllers    [MaxControllers]Controller
	numControllers int

	sampleRate   float64
	maxBlockSize int
	prepared     bool
}

// NewPipeline returns an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// AddStage appends s to the chain. Panics on nil stages, on capacity
// overflow, and when called after Prepare; all three are programming
// errors in the assembling context.
func (p *Pipeline) AddStage(s Stage) {
	if s == nil {
		panic("chain: nil stage")
	}
	if p.prepared {
		panic("chain: stage added after prepare")
	}
	if p.numStages >= MaxStages {
		panic(fmt.Sprintf("chain: stage capacity %d exceeded", MaxStages))
	}

	p.stages[p.numStages] = s
	p.numStages++
}

// AddController appends c to the controller set. Same registration
// rules as AddStage.
func (p *Pipeline) AddController(c Controller) {
	if c == nil {
		panic("chain: nil controller")
	}
	if p.prepared {
		panic("chain: controller added after prepare")
	}
	if p.numControllers >= MaxControllers {
		panic(fmt.Sprintf("chain: controller capacity %d exceeded", MaxControllers))
	}

	p.controllers[p.numControllers] = c
	p.numControllers++
}

// Prepare forwards the processing configuration to every stage, then to
// every controller that implements Preparer, and seals the pipeline.
// Off the real-time path.
func (p *Pipeline) Prepare(sampleRate float64, maxBlockSize int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("chain: sample rate must be positive: %v", sampleRate)
	}
	if maxBlockSize <= 0 {
		return fmt.Errorf("chain: max block size must be positive: %d", maxBlockSize)
	}

	for i := 0; i < p.numStages; i++ {
		if err := p.stages[i].Prepare(sampleRate, maxBlockSize); err != nil {
			return fmt.Errorf("chain: prepare stage %d: %w", i, err)
		}
	}

	for i := 0; i < p.numControllers; i++ {
		prep, ok := p.controllers[i].(Preparer)
		if !ok {
			continue
		}
		if err := prep.Prepare(sampleRate, maxBlockSize); err != nil {
			return fmt.Errorf("chain: prepare controller %d: %w", i, err)
		}
	}

	p.sampleRate = sampleRate
	p.maxBlockSize = maxBlockSize
	p.prepared = true

	return nil
}

// Process runs one block through the chain: every controller's
// PreProcess on the untouched input, then each stage in declaration
// order followed by every controller's BetweenStages hook with that
// stage's index. Real-time safe; the only entry point called from the
// real-time context.
func (p *Pipeline) Process(buf []float64) {
	for c := 0; c < p.numControllers; c++ {
		p.controllers[c].PreProcess(buf)
	}

	for i := 0; i < p.numStages; i++ {
		p.stages[i].Process(buf)

		for c := 0; c < p.numControllers; c++ {
			p.controllers[c].BetweenStages(i, buf)
		}
	}
}

// Reset forwards to every stage and to every controller that implements
// Resetter. Real-time safe.
func (p *Pipeline) Reset() {
	for i := 0; i < p.numStages; i++ {
		p.stages[i].Reset()
	}

	for c := 0; c < p.numControllers; c++ {
		if r, ok := p.controllers[c].(Resetter); ok {
			r.Reset()
		}
	}
}

// NumStages returns the number of registered stages.
func (p *Pipeline) NumStages() int { return p.numStages }

// NumControllers returns the number of registered controllers.
func (p *Pipeline) NumControllers() int { return p.numControllers }

// SampleRate returns the rate from the last Prepare call, or 0.
func (p *Pipeline) SampleRate() float64 { return p.sampleRate }

// MaxBlockSize returns the block bound from the last Prepare call, or 0.
func (p *Pipeline) MaxBlockSize() int { return p.maxBlockSize }
