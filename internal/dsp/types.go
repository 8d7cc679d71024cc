// Package dsp holds the data types shared by the DDC and Waterfall stages
// (spec §3): the complex IQ sample carried downstream of the DDC and the
// float32 spectrum produced by the Waterfall. Both are pool-managed
// (internal/pool) exactly like internal/payload.Payload, grounded on
// original_source/src/ddc.rs's `Vec<Complex<f32>>` and
// `Vec<f32>` (spectrum) pooled via LinearObjectPool.
package dsp

// ComplexSample is a single IQ sample: a pair of 32-bit floats. Go's
// built-in complex64 already has exactly that memory layout, so it is
// used directly rather than via a bespoke struct.
type ComplexSample = complex64

// IQBuffer is the DDC's output unit: one batch of decimated, mixed
// samples. Its backing array is reused across emissions by the pool that
// owns it, so its length is reset to zero rather than freeing.
type IQBuffer struct {
	Samples []ComplexSample
}

// NewIQBuffer preallocates an IQBuffer sized for n samples. The pool's
// reset function truncates rather than reallocates, so pooled buffers
// only grow, never shrink, across their lifetime.
func NewIQBuffer(n int) *IQBuffer {
	return &IQBuffer{Samples: make([]ComplexSample, 0, n)}
}

// ResetIQBuffer is the pool reset function for IQBuffer.
func ResetIQBuffer(b *IQBuffer) {
	b.Samples = b.Samples[:0]
}

// SpectrumBuffer is the Waterfall's output unit: one integrated power
// spectrum over the positive-frequency half of a 2·nch-point FFT.
type SpectrumBuffer struct {
	Power []float32
}

// NewSpectrumBuffer preallocates a SpectrumBuffer sized for n bins.
func NewSpectrumBuffer(n int) *SpectrumBuffer {
	return &SpectrumBuffer{Power: make([]float32, n)}
}

// ResetSpectrumBuffer zeroes a SpectrumBuffer for reuse without
// reallocating its backing array.
func ResetSpectrumBuffer(b *SpectrumBuffer) {
	for i := range b.Power {
		b.Power[i] = 0
	}
}
