package conv

import (
	"errors"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// Common errors returned by convolution functions.
var (
	// ErrEmptyInput is returned when the input signal is empty.
	ErrEmptyInput = errors.New("conv: input signal is empty")

	// ErrEmptyKernel is returned when the kernel is empty.
	ErrEmptyKernel = errors.New("conv: kernel is empty")

	// ErrLengthMismatch is returned when input lengths are incompatible.
	ErrLengthMismatch = errors.New("conv: length mismatch")

	// ErrInvalidBlockSize is returned when the block size is not positive.
	ErrInvalidBlockSize = errors.New("conv: block size must be positive")
)

// Direct performs direct time-domain linear convolution of a and b.
// Returns a new slice of length len(a) + len(b) - 1.
//
// This is an O(N*M) algorithm suitable for short kernels. For longer
// kernels, use UniformPartitioned.
func Direct(a, b []float64) ([]float64, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}
	if len(b) == 0 {
		return nil, ErrEmptyKernel
	}

	result := make([]float64, len(a)+len(b)-1)
	DirectTo(result, a, b)
	return result, nil
}

// DirectTo performs direct convolution, writing to a pre-allocated
// destination. dst must have length len(a) + len(b) - 1.
func DirectTo(dst, a, b []float64) {
	n := len(a)
	m := len(b)

	for i := range dst {
		dst[i] = 0
	}

	// Vectorized inner loop pays off once the kernel is a few samples
	// long; below that the scalar loop wins.
	const vectorThreshold = 4
	if m >= vectorThreshold {
		directToVector(dst, a, b, n, m)
	} else {
		directToScalar(dst, a, b, n, m)
	}
}

func directToScalar(dst, a, b []float64, n, m int) {
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			dst[i+j] += a[i] * b[j]
		}
	}
}

func directToVector(dst, a, b []float64, n, m int) {
	temp := make([]float64, m)

	for i := 0; i < n; i++ {
		// temp = b * a[i], then dst[i:i+m] += temp.
		vecmath.ScaleBlock(temp, b, a[i])
		vecmath.AddBlockInPlace(dst[i:i+m], temp)
	}
}
