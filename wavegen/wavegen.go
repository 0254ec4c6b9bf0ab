// Package wavegen synthesizes normalized test waveforms for upload to an
// arbitrary waveform generator.  All generators return samples in the
// [-1, 1] range expected by the 14-bit sample packer.
package wavegen

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrBadShape is returned when a generator is asked for a waveform whose
// parameters do not describe a realizable shape (zero points, nonpositive
// width, amplitude outside the packer's range).
var ErrBadShape = errors.New("wavegen: parameters do not describe a valid waveform")

func checkShape(n int, amplitude float64) error {
	if n < 1 {
		return ErrBadShape
	}
	if math.Abs(amplitude) > 1 || math.IsNaN(amplitude) {
		return ErrBadShape
	}
	return nil
}

// Sine returns n samples of amplitude*sin(2*pi*cycles*t + phase) with t
// sweeping [0, 1).  cycles need not be integral; a fractional cycle count
// produces a phase-discontinuous waveform when looped.
func Sine(n int, cycles, amplitude, phase float64) ([]float64, error) {
	if err := checkShape(n, amplitude); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	w := 2 * math.Pi * cycles / float64(n)
	for i := range out {
		out[i] = amplitude * math.Sin(w*float64(i)+phase)
	}
	return out, nil
}

// Square returns n samples of a square wave at the given cycle count and
// duty cycle in (0, 1).  High samples are +amplitude, low samples are
// -amplitude.
func Square(n int, cycles, amplitude, duty float64) ([]float64, error) {
	if err := checkShape(n, amplitude); err != nil {
		return nil, err
	}
	if duty <= 0 || duty >= 1 {
		return nil, ErrBadShape
	}
	out := make([]float64, n)
	for i := range out {
		_, frac := math.Modf(cycles * float64(i) / float64(n))
		if frac < duty {
			out[i] = amplitude
		} else {
			out[i] = -amplitude
		}
	}
	return out, nil
}

// Ramp returns n samples sweeping linearly from -amplitude to +amplitude.
func Ramp(n int, amplitude float64) ([]float64, error) {
	if err := checkShape(n, amplitude); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = -amplitude
		return out, nil
	}
	floats.Span(out, -amplitude, amplitude)
	return out, nil
}

// DC returns n samples at the given constant level.
func DC(n int, level float64) ([]float64, error) {
	if err := checkShape(n, level); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = level
	}
	return out, nil
}

// Gaussian returns an n-sample Gaussian pulse centered at sample index mu
// with standard deviation sigma (in samples), scaled so its peak equals
// amplitude.
func Gaussian(n int, mu, sigma, amplitude float64) ([]float64, error) {
	if err := checkShape(n, amplitude); err != nil {
		return nil, err
	}
	if sigma <= 0 {
		return nil, ErrBadShape
	}
	dist := distuv.Normal{Mu: mu, Sigma: sigma}
	out := make([]float64, n)
	for i := range out {
		out[i] = dist.Prob(float64(i))
	}
	// Prob peaks at 1/(sigma*sqrt(2*pi)); rescale so the peak hits the
	// requested amplitude exactly.
	peak := floats.Max(out)
	if peak > 0 {
		floats.Scale(amplitude/peak, out)
	}
	return out, nil
}

// MarkerPulse returns an n-sample marker track that is 1 on [start,
// start+width) and 0 elsewhere.  The pulse is clipped to the track length.
func MarkerPulse(n, start, width int) ([]int, error) {
	if n < 1 || start < 0 || width < 0 {
		return nil, ErrBadShape
	}
	out := make([]int, n)
	for i := start; i < start+width && i < n; i++ {
		out[i] = 1
	}
	return out, nil
}

// MarkerOff returns an n-sample all-zero marker track.
func MarkerOff(n int) []int {
	return make([]int, n)
}
