package conv

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// UniformPartitioned implements streaming convolution using uniformly
// partitioned overlap-save.
//
// The kernel is split into partitions of equal length P (a power of
// two). Each incoming block of P input samples is transformed once,
// its spectrum is pushed into a frequency-domain delay line, and the
// output spectrum is accumulated as the sum over all partitions of
// the k-th kernel spectrum times the input spectrum from k blocks
// ago. A single inverse transform per block then yields P output
// samples.
//
// Per-block cost is two FFTs of size 2P plus one complex
// multiply-accumulate pass over the delay line, independent of how
// the kernel length compares to the block length. Input of any call
// length is staged internally, so callers are not required to align
// with the partition size; the price is a fixed latency of P samples.
//
// The processing path performs no allocation and is safe to call from
// an audio callback.
type UniformPartitioned struct {
	// Kernel partition spectra, one per partition of length partSize.
	kernelFFT [][]complex128

	// Frequency-domain delay line holding the spectra of the most
	// recent input blocks. head indexes the newest entry.
	fdl  [][]complex128
	head int

	// Configuration
	kernelLen     int // original kernel length
	partSize      int // partition length P (power of 2)
	fftSize       int // transform size, always 2 * partSize
	numPartitions int

	// FFT plan
	plan *algofft.Plan[complex128]

	// Streaming state
	window []float64 // sliding time window: previous block ++ current block
	stage  []float64 // input samples collected toward the next block
	ready  []float64 // output samples being drained
	pos    int       // read/write position within stage and ready

	// Scratch buffers
	timeBuf []complex128
	accum   []complex128
}

// NewUniformPartitioned creates a streaming convolver for the given
// kernel. blockSize is the caller's nominal processing block length;
// the partition size is the next power of two at or above it, which
// is also the latency in samples.
func NewUniformPartitioned(kernel []float64, blockSize int) (*UniformPartitioned, error) {
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}
	if blockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}

	partSize := nextPowerOf2(blockSize)
	fftSize := 2 * partSize
	numPartitions := (len(kernel) + partSize - 1) / partSize

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create FFT plan: %w", err)
	}

	up := &UniformPartitioned{
		kernelFFT:     make([][]complex128, numPartitions),
		fdl:           make([][]complex128, numPartitions),
		kernelLen:     len(kernel),
		partSize:      partSize,
		fftSize:       fftSize,
		numPartitions: numPartitions,
		plan:          plan,
		window:        make([]float64, fftSize),
		stage:         make([]float64, partSize),
		ready:         make([]float64, partSize),
		timeBuf:       make([]complex128, fftSize),
		accum:         make([]complex128, fftSize),
	}

	// Transform each zero-padded kernel partition once up front.
	padded := make([]complex128, fftSize)
	for k := range numPartitions {
		for i := range padded {
			padded[i] = 0
		}
		start := k * partSize
		end := min(start+partSize, len(kernel))
		for i, v := range kernel[start:end] {
			padded[i] = complex(v, 0)
		}

		up.kernelFFT[k] = make([]complex128, fftSize)
		if err := plan.Forward(up.kernelFFT[k], padded); err != nil {
			return nil, fmt.Errorf("conv: failed to compute kernel FFT: %w", err)
		}

		up.fdl[k] = make([]complex128, fftSize)
	}

	return up, nil
}

// KernelLen returns the kernel length in samples.
func (up *UniformPartitioned) KernelLen() int {
	return up.kernelLen
}

// PartitionSize returns the partition length P.
func (up *UniformPartitioned) PartitionSize() int {
	return up.partSize
}

// NumPartitions returns the number of kernel partitions.
func (up *UniformPartitioned) NumPartitions() int {
	return up.numPartitions
}

// Latency returns the processing delay in samples. Output sample i
// corresponds to input sample i - Latency().
func (up *UniformPartitioned) Latency() int {
	return up.partSize
}

// Process convolves input with the kernel and returns a new slice of
// the same length. See ProcessBlockTo for the streaming semantics.
func (up *UniformPartitioned) Process(input []float64) ([]float64, error) {
	if len(input) == 0 {
		return nil, ErrEmptyInput
	}

	output := make([]float64, len(input))
	if err := up.ProcessBlockTo(output, input); err != nil {
		return nil, err
	}
	return output, nil
}

// ProcessBlockTo convolves src with the kernel, writing len(src)
// samples to dst. dst and src must have the same length and may be
// the same slice. State carries across calls, so a long signal may be
// fed in chunks of any length; the output is the linear convolution
// of everything fed so far, delayed by Latency() samples.
func (up *UniformPartitioned) ProcessBlockTo(dst, src []float64) error {
	if len(dst) != len(src) {
		return ErrLengthMismatch
	}

	for i, x := range src {
		out := up.ready[up.pos]
		up.stage[up.pos] = x
		up.pos++
		if up.pos == up.partSize {
			if err := up.step(); err != nil {
				return err
			}
			up.pos = 0
		}
		dst[i] = out
	}
	return nil
}

// step consumes one staged block: transform, accumulate against all
// kernel partitions, inverse transform, keep the valid half.
func (up *UniformPartitioned) step() error {
	copy(up.window[up.partSize:], up.stage)
	for i, v := range up.window {
		up.timeBuf[i] = complex(v, 0)
	}

	if err := up.plan.Forward(up.fdl[up.head], up.timeBuf); err != nil {
		return fmt.Errorf("conv: forward FFT: %w", err)
	}

	for i := range up.accum {
		up.accum[i] = 0
	}
	for k := range up.numPartitions {
		idx := up.head - k
		if idx < 0 {
			idx += up.numPartitions
		}
		spec := up.fdl[idx]
		kern := up.kernelFFT[k]
		for i := range up.accum {
			up.accum[i] += spec[i] * kern[i]
		}
	}

	if err := up.plan.Inverse(up.timeBuf, up.accum); err != nil {
		return fmt.Errorf("conv: inverse FFT: %w", err)
	}

	// The first partSize samples carry circular wrap-around; the
	// second half is the valid linear convolution output.
	for i := range up.partSize {
		up.ready[i] = real(up.timeBuf[up.partSize+i])
	}

	up.head++
	if up.head == up.numPartitions {
		up.head = 0
	}
	copy(up.window[:up.partSize], up.window[up.partSize:])
	return nil
}

// Reset clears all streaming state so the next input is treated as
// the start of a new signal. The kernel spectra are kept.
func (up *UniformPartitioned) Reset() {
	for _, spec := range up.fdl {
		for i := range spec {
			spec[i] = 0
		}
	}
	for i := range up.window {
		up.window[i] = 0
	}
	for i := range up.stage {
		up.stage[i] = 0
	}
	for i := range up.ready {
		up.ready[i] = 0
	}
	up.pos = 0
	up.head = 0
}

// nextPowerOf2 returns the smallest power of 2 >= n.
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
