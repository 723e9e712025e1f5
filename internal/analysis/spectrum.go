package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Spectrum returns the magnitude of bins 0..n/2 of a recorded error trace
// sampled at sampleRate, together with the bin width in Hz. The mean is
// removed and a Hann window applied first, so a steady offset from the
// target does not swamp the oscillation peaks. Any length works.
func Spectrum(data []float64, sampleRate float64) (power []float64, binWidth float64) {
	n := len(data)
	if n < 2 || sampleRate <= 0 {
		return nil, 0
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	x := make([]float64, n)
	for i, v := range data {
		x[i] = v - mean
	}
	window.Apply(x, window.Hann)

	bins := fft.FFTReal(x)
	power = make([]float64, n/2+1)
	for i := range power {
		power[i] = cmplx.Abs(bins[i])
	}
	return power, sampleRate / float64(n)
}

// DominantFrequency returns the frequency of the strongest non-DC bin and its
// magnitude. A flat signal yields zero.
func DominantFrequency(data []float64, sampleRate float64) (freq, power float64) {
	ps, bin := Spectrum(data, sampleRate)
	idx := 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > power {
			power = ps[i]
			idx = i
		}
	}
	if power < 1e-9 {
		return 0, 0
	}
	return float64(idx) * bin, power
}
