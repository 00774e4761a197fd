package stages

import (
	"fmt"

	"github.com/cwbudde/algo-rig/dsp/envelope"
	"github.com/cwbudde/algo-rig/dsp/params"
)

// Bloom coordinates a pre and a post gain stage around a central
// stage using the input signal's envelope. Louder playing pulls the
// gain feeding the central stage down while raising the make-up gain
// behind it, so the drive into the central stage breathes with the
// performance without the overall level jumping.
//
// Bloom is a controller, not a stage. It analyzes the raw input in
// the pre-process hook, writes the pre gain at the boundary just
// before the central stage, and writes the post gain at the boundary
// just after it. It references the gain stages without owning them.
type Bloom struct {
	store *params.Store
	pre   *Gain
	post  *Gain

	follower     *envelope.Follower
	centralIndex int

	// Applied detector times, compared against the store each block.
	attackMs  float64
	releaseMs float64

	env float64
}

// NewBloom creates a controller driving pre and post around the stage
// at centralIndex, which must leave room for the pre gain stage in
// front of it.
func NewBloom(store *params.Store, pre, post *Gain, centralIndex int) (*Bloom, error) {
	if store == nil {
		return nil, fmt.Errorf("stages: bloom needs a parameter store")
	}
	if pre == nil || post == nil {
		return nil, fmt.Errorf("stages: bloom needs both gain stages")
	}
	if centralIndex < 1 {
		return nil, fmt.Errorf("stages: central stage index must be at least 1: %d", centralIndex)
	}
	return &Bloom{
		store:        store,
		pre:          pre,
		post:         post,
		centralIndex: centralIndex,
	}, nil
}

// Prepare builds the envelope follower for the sample rate.
func (b *Bloom) Prepare(sampleRate float64, maxBlockSize int) error {
	f, err := envelope.NewFollower(sampleRate)
	if err != nil {
		return fmt.Errorf("stages: prepare envelope follower: %w", err)
	}
	b.follower = f
	b.attackMs = 0
	b.releaseMs = 0
	b.refreshTimes()
	b.env = 0
	return nil
}

// PreProcess advances the envelope over the untouched input block.
func (b *Bloom) PreProcess(buf []float64) {
	if b.follower == nil {
		return
	}
	b.refreshTimes()
	b.env = b.follower.Analyze(buf)
}

// BetweenStages writes the coordinated gain targets at the two
// boundaries around the central stage and ignores every other index.
func (b *Bloom) BetweenStages(stageIndex int, buf []float64) {
	switch stageIndex {
	case b.centralIndex - 1:
		base := b.store.Get(params.BloomPreBaseDB)
		depth := b.store.Get(params.BloomPreDepthDB)
		b.pre.SetGainDB(base - depth*b.env)
	case b.centralIndex:
		base := b.store.Get(params.BloomPostBaseDB)
		depth := b.store.Get(params.BloomPostDepthDB)
		b.post.SetGainDB(base + depth*b.env)
	}
}

// Envelope returns the level computed for the last block, in [0, 1].
func (b *Bloom) Envelope() float64 {
	return b.env
}

// Reset clears the envelope detector.
func (b *Bloom) Reset() {
	if b.follower != nil {
		b.follower.Reset()
	}
	b.env = 0
}

func (b *Bloom) refreshTimes() {
	attack := b.store.Get(params.EnvAttackMs)
	if attack != b.attackMs {
		if err := b.follower.SetAttack(attack); err == nil {
			b.attackMs = attack
		}
	}
	release := b.store.Get(params.EnvReleaseMs)
	if release != b.releaseMs {
		if err := b.follower.SetRelease(release); err == nil {
			b.releaseMs = release
		}
	}
}
