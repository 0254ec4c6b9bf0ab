package wavegen

import (
	"math"
	"testing"
)

func TestSineRangeAndPeriod(t *testing.T) {
	s, err := Sine(1000, 1, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(s) != 1000 {
		t.Fatalf("got %d samples, want 1000", len(s))
	}
	for i, v := range s {
		if v < -1 || v > 1 {
			t.Fatalf("sample %d = %f outside [-1,1]", i, v)
		}
	}
	if s[0] != 0 {
		t.Errorf("sin(0) = %f, want 0", s[0])
	}
	if math.Abs(s[250]-1) > 1e-9 {
		t.Errorf("quarter-cycle sample = %f, want 1", s[250])
	}
}

func TestSquareDuty(t *testing.T) {
	s, err := Square(100, 1, 0.5, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	high := 0
	for _, v := range s {
		switch v {
		case 0.5:
			high++
		case -0.5:
		default:
			t.Fatalf("unexpected level %f", v)
		}
	}
	if high != 25 {
		t.Errorf("got %d high samples, want 25", high)
	}
}

func TestRampEndpoints(t *testing.T) {
	s, err := Ramp(11, 1)
	if err != nil {
		t.Fatal(err)
	}
	if s[0] != -1 || s[10] != 1 {
		t.Errorf("ramp endpoints %f..%f, want -1..1", s[0], s[10])
	}
	if math.Abs(s[5]) > 1e-12 {
		t.Errorf("ramp midpoint %f, want 0", s[5])
	}
}

func TestGaussianPeak(t *testing.T) {
	s, err := Gaussian(101, 50, 10, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(s[50]-0.8) > 1e-9 {
		t.Errorf("peak = %f, want 0.8", s[50])
	}
	if s[0] >= s[50] || s[100] >= s[50] {
		t.Error("tails should be below the peak")
	}
}

func TestMarkerPulseClipped(t *testing.T) {
	m, err := MarkerPulse(10, 8, 5)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 0, 0, 0, 0, 0, 0, 0, 1, 1}
	for i := range want {
		if m[i] != want[i] {
			t.Fatalf("marker[%d] = %d, want %d", i, m[i], want[i])
		}
	}
}

func TestBadShapes(t *testing.T) {
	if _, err := Sine(0, 1, 1, 0); err == nil {
		t.Error("zero-length sine should fail")
	}
	if _, err := Sine(10, 1, 1.5, 0); err == nil {
		t.Error("overrange amplitude should fail")
	}
	if _, err := Square(10, 1, 1, 0); err == nil {
		t.Error("zero duty cycle should fail")
	}
	if _, err := Gaussian(10, 5, 0, 1); err == nil {
		t.Error("zero sigma should fail")
	}
	if _, err := MarkerPulse(0, 0, 1); err == nil {
		t.Error("zero-length marker should fail")
	}
}
