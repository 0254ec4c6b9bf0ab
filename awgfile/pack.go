package awgfile

import (
	"fmt"
	"math"
)

// Pack converts a waveform and two markers into the 16-bit integer format
// the instrument stores waveforms in.  The waveform occupies the low 14
// bits and the markers one bit each (marker 1 at bit 14, marker 2 at bit
// 15); see Table 2-25 in the programmer manual.
//
// Waveform samples must lie in [-1, 1] and marker samples must be exactly
// 0 or 1.  Amplitude is quantized onto [0, 16382] centered at 8191 with
// half-away-from-zero rounding, so identical inputs always produce
// identical output.
func Pack(wf []float64, m1, m2 []int) ([]uint16, error) {
	if len(wf) != len(m1) || len(m1) != len(m2) {
		return nil, fmt.Errorf("%w: waveform %d, marker1 %d, marker2 %d",
			ErrLengthMismatch, len(wf), len(m1), len(m2))
	}
	out := make([]uint16, len(wf))
	for i, w := range wf {
		if w < -1 || w > 1 || math.IsNaN(w) {
			return nil, fmt.Errorf("%w: waveform sample %d is %v, allowed -1 to 1 inclusive",
				ErrValueOutOfRange, i, w)
		}
		if m1[i] != 0 && m1[i] != 1 {
			return nil, fmt.Errorf("%w: marker 1 sample %d is %d", ErrInvalidMarker, i, m1[i])
		}
		if m2[i] != 0 && m2[i] != 1 {
			return nil, fmt.Errorf("%w: marker 2 sample %d is %d", ErrInvalidMarker, i, m2[i])
		}
		// accumulate in int; a negative intermediate (w < 0) converted
		// straight to uint16 would be implementation-defined
		v := int(math.Round(w*8191)) + 8191 + m1[i]<<14 + m2[i]<<15
		out[i] = uint16(v)
	}
	return out, nil
}
