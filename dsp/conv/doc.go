// Package conv provides linear convolution for impulse response
// processing.
//
// Two implementations cover the practical range of kernel lengths:
//
//   - Direct: time-domain convolution, O(N*M). The right choice for
//     short kernels and the reference every other implementation is
//     tested against.
//   - UniformPartitioned: a streaming frequency-domain engine that
//     splits the kernel into uniform partitions and convolves each
//     block of input against all partitions via FFT. Per-block cost is
//     bounded by the partition size rather than the kernel length, so
//     it stays usable for kernels of several seconds.
//
// # Streaming
//
// UniformPartitioned accepts input in chunks of any length and
// produces output of the same length per call, delayed by Latency()
// samples. All buffers are allocated at construction; the processing
// path performs no allocation, which makes it safe to call from an
// audio callback.
//
//	up, err := conv.NewUniformPartitioned(impulseResponse, 512)
//	if err != nil {
//		return err
//	}
//	for {
//		up.ProcessBlockTo(out, in) // len(out) == len(in), any length
//	}
package conv
