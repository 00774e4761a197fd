// Package design provides RBJ-style biquad coefficient designers.
//
// The functions here produce coefficients consumable by dsp/filter/biquad
// for runtime processing. The parametric equalizer builds its peaking
// bands from [Peak]; [Lowpass], [Highpass] and the shelving designers
// cover the usual tone-shaping needs around it.
//
// Out-of-range design requests (frequency at or beyond Nyquist,
// non-positive sample rate) return zero coefficients, which a Section
// renders as silence rather than instability.
package design
