// Package dither quantizes floating-point audio to integer bit depths.
// Adding a small amount of noise before rounding decorrelates the
// quantization error from the signal; the render path uses triangular
// dither when it writes 16-bit files.
package dither

import "fmt"

// Type selects the probability distribution of the dither noise.
type Type int

const (
	// None applies no dither, only rounding.
	None Type = iota
	// Rectangular uses a uniform PDF.
	Rectangular
	// Triangular uses a triangular PDF (TPDF), the usual choice.
	Triangular

	typeCount
)

var typeNames = [typeCount]string{"None", "Rectangular", "Triangular"}

// String returns the name of the dither type.
func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}

	return fmt.Sprintf("Type(%d)", int(t))
}

// Valid reports whether t is a known dither type.
func (t Type) Valid() bool {
	return t >= 0 && t < typeCount
}
