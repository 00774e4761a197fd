// Package stages provides the processing stages and controllers that a
// rig pipeline is assembled from.
//
// Included stages:
//   - Gain: Smoothed gain with lock-free target updates.
//   - EQ: Three-band parametric equalizer driven by a parameter store.
//   - Convolver: Partitioned convolution with hot-swappable impulse responses.
//   - Reverb: Schroeder/Freeverb-style algorithmic reverb.
//   - Swappable: Slot that swaps an external Resource in and out between blocks.
//
// Included controllers and helpers:
//   - Bloom: Envelope-driven controller spreading dynamics across two gains.
//   - AsyncLoader: Background resource loading for a Swappable stage.
//   - ConvolverResource: An impulse response packaged as a swappable Resource.
//
// All stages process mono float64 blocks in place and keep their hot
// paths allocation-free. Control updates land on block boundaries only.
package stages
