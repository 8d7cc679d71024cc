// Package fir designs the low-pass FIR coefficients used by the DDC stage
// (spec §4.3 "FIR design"): a Kaiser-windowed sinc, grounded directly on
// _examples/original_source/src/fir.rs (design_lowpass_filter,
// kaiser_window, bessel_i0).
//
// gonum.org/v1/gonum/dsp/window does not ship a Kaiser window as of
// v0.17.0 — only Hamming/Hann/Blackman/etc — so this piece is implemented
// directly from the original's math rather than a third-party library.
// Within the DSP stages, gonum is used only for the Waterfall's FFT.
package fir

import "math"

// besselI0 is the modified Bessel function of the first kind, order zero,
// via the power series used by the original implementation. It converges
// quickly for the beta values used by a Kaiser window (beta <= ~10).
func besselI0(x float64) float64 {
	sum := 1.0
	term := 1.0
	for k := 1; ; k++ {
		term *= (x * x) / (4 * float64(k) * float64(k))
		old := sum
		sum += term
		if sum == old || !isFinite(sum) {
			break
		}
	}
	return sum
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// kaiserWindow returns the n-point Kaiser window with shape parameter beta.
func kaiserWindow(n int, beta float64) []float64 {
	w := make([]float64, n)
	mid := float64(n-1) / 2
	denom := besselI0(beta)
	for i := 0; i < n; i++ {
		it := float64(i)
		arg := beta * math.Sqrt(1-4*(it-mid)*(it-mid)/float64((n-1)*(n-1)))
		w[i] = besselI0(arg) / denom
	}
	return w
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(x*math.Pi) / (x * math.Pi)
}

// DesignLowpass returns ntap Kaiser-windowed sinc low-pass coefficients.
// fcutoff is the cutoff in cycles per sample (Nyquist = 0.5), and beta
// is the Kaiser shape parameter (spec §4.3).
func DesignLowpass(ntap int, fcutoff, beta float64) []float32 {
	mid := float64(ntap-1) / 2
	win := kaiserWindow(ntap, beta)
	coeffs := make([]float32, ntap)
	for n := 0; n < ntap; n++ {
		h := sinc(2 * fcutoff * (float64(n) - mid))
		coeffs[n] = float32(win[n] * h)
	}
	return coeffs
}

// FullCoeffs and HalfCoeffs are the two prebuilt coefficient sets spec
// §4.3 names: "full" for ndec=2 and "half" for ndec=4, selected by the
// digitizer's configured sample rate.
func FullCoeffs(ntap int) []float32 {
	return DesignLowpass(ntap, 0.45, 6.5)
}

func HalfCoeffs(ntap int) []float32 {
	return DesignLowpass(ntap, 0.22, 6.5)
}
