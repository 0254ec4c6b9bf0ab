// Package util contains misc internal utilities.
package util

// Limiter bounds a value with a min and max
type Limiter struct {
	// Min is the lower bound
	Min float64

	// Max is the upper bound
	Max float64
}

// Check returns true if v is within the limits.  The zero value
// passes everything.
func (l Limiter) Check(v float64) bool {
	if l.Min == 0 && l.Max == 0 {
		return true
	}
	return v >= l.Min && v <= l.Max
}
