// Package chain defines the stage and controller contracts and the
// fixed-capacity pipeline that runs them once per audio block.
//
// A pipeline is assembled and prepared on the control context, then
// driven from a real-time context whose per-block deadline forbids
// allocation, locking, and blocking. Everything reachable from
// Pipeline.Process honors that: stages process in place, controllers
// observe and write through their own lock-free channels, and the
// pipeline itself is a pair of fixed arrays walked in declaration order.
package chain

// Stage is a mono in-place processing unit. The pipeline references
// stages but does not own them; the assembling context must keep them
// alive for the pipeline's lifetime.
type Stage interface {
	// Prepare is called once, off the real-time path, before any
	// Process call. Implementations size internal buffers for
	// maxBlockSize so Process never allocates.
	Prepare(sampleRate float64, maxBlockSize int) error

	// Process transforms buf in place. len(buf) never exceeds the
	// prepared maxBlockSize. Real-time safe.
	Process(buf []float64)

	// Reset clears filter memory without reallocating. Real-time safe.
	Reset()
}

// Controller observes the signal at stage boundaries and coordinates
// values across stages. Controllers hold references to the stages and
// stores they drive; they own none of them.
type Controller interface {
	// PreProcess sees the block before any stage has run. The buffer
	// is read-only by contract; implementations must not mutate it.
	PreProcess(buf []float64)

	// BetweenStages runs after the stage at stageIndex has processed
	// the (now mutated) buffer.
	BetweenStages(stageIndex int, buf []float64)
}

// Preparer is implemented by controllers that need the sample rate or
// block bound. Pipeline.Prepare forwards to them after the stages.
type Preparer interface {
	Prepare(sampleRate float64, maxBlockSize int) error
}

// Resetter is implemented by controllers carrying clearable state, such
// as an envelope detector. Pipeline.Reset forwards to them.
type Resetter interface {
	Reset()
}
