// Package ddc implements the digital down-conversion stage (spec §4.3):
// mix by an LO table, convolve with a FIR low-pass, decimate.
//
// Grounded directly on original_source/src/ddc.rs's ddc_x8, generalized
// from its hardcoded ndec=8/ntap=24 to the configurable ndec ∈ {2,4,8}
// and ntap the spec allows; the mix/convolve/retain-overlap steps are a
// line-for-line transcription of that function's per-Payload loop body.
package ddc

import "math"

// Engine holds the DDC's mutable per-LO state (history buffers, LO
// table) and the per-instance-fixed FIR/decimation configuration. It is
// not safe for concurrent use; one Engine belongs to exactly one Stage
// goroutine (spec §5: one OS thread per pipeline stage, no shared
// mutable state across stages).
type Engine struct {
	ndec    int
	ntap    int
	statLen int
	coeffs  []float32

	loCh     int
	cosTable []float32
	sinTable []float32

	historyI []float32
	historyQ []float32

	nPtPerFrame  int
	nOutPerFrame int
	batchM       int
	framesAccum  int
	accum        []complex64
}

// NewEngine builds a DDC engine for the given decimation factor, FIR
// coefficients (length ntap), and batching factor M (spec §4.3: output
// length is N_PT_PER_FRAME·M/ndec). lo_ch starts at 0; set it via SetLO
// before the first Mix if a nonzero starting channel is required.
func NewEngine(ndec, ntap int, coeffs []float32, batchM, nPtPerFrame int) *Engine {
	if nPtPerFrame%ndec != 0 {
		panic("ddc: N_PT_PER_FRAME must be a multiple of ndec")
	}
	ntapPerCh := ntap / ndec
	statLen := ndec * (ntapPerCh - 1)

	e := &Engine{
		ndec:         ndec,
		ntap:         ntap,
		statLen:      statLen,
		coeffs:       coeffs,
		batchM:       batchM,
		nPtPerFrame:  nPtPerFrame,
		nOutPerFrame: nPtPerFrame / ndec,
		historyI:     make([]float32, statLen+nPtPerFrame),
		historyQ:     make([]float32, statLen+nPtPerFrame),
	}
	e.SetLO(0)
	return e
}

// SetLO rebuilds the LO table for channel ch (spec §4.3 "Hot LO update"):
// rebuilt atomically before the next mix, samples already mixed into
// history keep their previous-LO content.
func (e *Engine) SetLO(ch int) {
	e.loCh = ch
	n := e.nPtPerFrame
	cos := make([]float32, n)
	sin := make([]float32, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(ch) * float64(i) / float64(n)
		cos[i] = float32(math.Cos(theta))
		sin[i] = float32(-math.Sin(theta))
	}
	e.cosTable = cos
	e.sinTable = sin
}

// LoCh returns the engine's current LO channel index.
func (e *Engine) LoCh() int { return e.loCh }

// NOutPerFrame returns the number of decimated samples one Payload
// contributes, N_PT_PER_FRAME/ndec.
func (e *Engine) NOutPerFrame() int { return e.nOutPerFrame }

// Mix folds one Payload's real samples into the DDC state (spec §4.3
// Algorithm steps 1-4): mix into history, convolve-and-decimate, retain
// the overlap tail, and append to the batch accumulator. It returns the
// accumulated IQ samples and true once batchM frames have been folded
// in, at which point the accumulator is reset for the next batch.
func (e *Engine) Mix(data []int16) ([]complex64, bool) {
	n := len(data)
	for i := 0; i < n; i++ {
		x := float32(data[i])
		e.historyI[e.statLen+i] = x * e.cosTable[i]
		e.historyQ[e.statLen+i] = x * e.sinTable[i]
	}

	outI := convolveDecimate(e.historyI, e.coeffs, e.ntap, e.ndec)
	outQ := convolveDecimate(e.historyQ, e.coeffs, e.ntap, e.ndec)

	tail := len(e.historyI) - e.statLen
	copy(e.historyI[:e.statLen], e.historyI[tail:])
	copy(e.historyQ[:e.statLen], e.historyQ[tail:])

	for i := range outI {
		e.accum = append(e.accum, complex(outI[i], outQ[i]))
	}
	e.framesAccum++

	if e.framesAccum < e.batchM {
		return nil, false
	}
	out := e.accum
	e.accum = nil
	e.framesAccum = 0
	return out, true
}

// convolveDecimate slides an ntap-wide FIR window across history with
// stride ndec, producing one output sample per stride — the Go
// equivalent of ddc_x8's `b.windows(TAP).step_by(NDEC)` SIMD dot
// product, written as a plain loop since there is no portable SIMD
// intrinsic in the standard library.
func convolveDecimate(history, coeffs []float32, ntap, ndec int) []float32 {
	n := (len(history)-ntap)/ndec + 1
	out := make([]float32, n)
	for w := 0; w < n; w++ {
		start := w * ndec
		window := history[start : start+ntap]
		var sum float32
		for k, c := range coeffs {
			sum += window[k] * c
		}
		out[w] = sum
	}
	return out
}
