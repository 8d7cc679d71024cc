// Package waterfall implements the integrated power-spectrum stage (spec
// §4.4): slide a 2·nch-point real FFT over the sample stream and
// integrate power across nint consecutive FFTs into a float32 spectrum.
//
// Grounded on original_source/src/pipeline.rs's pkt_fft/pkt_integrate
// pair (buffer-until-full, FFT, positive-half selection, running-sum
// integration with reset), composed here into one stage the way the
// teacher composes read+decode in a single loop rather than as separate
// OS threads for every sub-step. The FFT itself uses
// gonum.org/v1/gonum/dsp/fourier.FFT, a real-input transform that
// returns exactly the positive-frequency half (n/2+1 coefficients)
// directly — the original's rustfft only offered a full complex FFT,
// which it then had to slice by hand; gonum's purpose-built real-FFT
// type makes that slicing step unnecessary.
package waterfall

import "gonum.org/v1/gonum/dsp/fourier"

// Engine buffers real samples, runs forward FFTs, and integrates power
// across nint consecutive FFTs (spec §4.4 Algorithm). Not safe for
// concurrent use.
type Engine struct {
	nch    int
	nint   int
	nbatch int

	fft *fourier.FFT

	nbuf   int
	buffer []float64
	offset int

	seq    []float64 // scratch, len 2*nch, one FFT window
	coeffs []complex128

	sum   []float64
	count int
}

// NewEngine builds a Waterfall engine. nch is the number of positive-
// frequency bins retained per FFT, nint the number of FFTs integrated
// per full emission, nbatch the stride (in FFTs) at which a sliding
// partial integration is also emitted when nbatch < nint (spec §4.4).
// nPtPerFrame is the Payload sample count (N_PT_PER_FRAME).
func NewEngine(nch, nint, nbatch, nPtPerFrame int) *Engine {
	if nPtPerFrame%(2*nch) != 0 && (2*nch)%nPtPerFrame != 0 {
		panic("waterfall: N_PT_PER_FRAME must be a multiple of 2*nch or vice versa")
	}
	if nbatch <= 0 || nbatch > nint {
		nbatch = nint
	}
	nbuf := 2 * nch
	if nPtPerFrame > nbuf {
		nbuf = nPtPerFrame
	}
	return &Engine{
		nch:    nch,
		nint:   nint,
		nbatch: nbatch,
		fft:    fourier.NewFFT(2 * nch),
		nbuf:   nbuf,
		buffer: make([]float64, nbuf),
		seq:    make([]float64, 2*nch),
		sum:    make([]float64, nch),
	}
}

// Emission describes one output of Feed: a copy of the power spectrum
// accumulated so far, and whether the integration window (nint) has
// completed (in which case the accumulator has been reset) or this is
// an intermediate sliding partial (spec §4.4: "emit sliding partial
// integrations at stride nbatch").
type Emission struct {
	Power []float32
	Final bool
}

// Feed appends one Payload's real samples to the buffer, running
// whichever FFT windows become available and folding their power into
// the running integration. It returns zero or more Emissions, in
// order — more than one is possible when nPtPerFrame spans multiple
// 2*nch-point FFT windows.
func (e *Engine) Feed(data []int16) []Emission {
	var out []Emission

	remaining := data
	for len(remaining) > 0 {
		take := e.nbuf - e.offset
		if take > len(remaining) {
			take = len(remaining)
		}
		for i := 0; i < take; i++ {
			e.buffer[e.offset+i] = float64(remaining[i])
		}
		e.offset += take
		remaining = remaining[take:]

		if e.offset < e.nbuf {
			continue
		}
		e.offset = 0

		for w := 0; w+2*e.nch <= e.nbuf; w += 2 * e.nch {
			copy(e.seq, e.buffer[w:w+2*e.nch])
			e.coeffs = e.fft.Coefficients(e.coeffs, e.seq)

			if em, ok := e.integrate(e.coeffs[:e.nch]); ok {
				out = append(out, em)
			}
		}
	}
	return out
}

func (e *Engine) integrate(half []complex128) (Emission, bool) {
	if e.count == 0 {
		for i, c := range half {
			e.sum[i] = real(c)*real(c) + imag(c)*imag(c)
		}
	} else {
		for i, c := range half {
			e.sum[i] += real(c)*real(c) + imag(c)*imag(c)
		}
	}
	e.count++

	final := e.count == e.nint
	partial := !final && e.count%e.nbatch == 0

	if !final && !partial {
		return Emission{}, false
	}

	power := make([]float32, e.nch)
	for i, v := range e.sum {
		power[i] = float32(v)
	}
	if final {
		e.count = 0
	}
	return Emission{Power: power, Final: final}, true
}

