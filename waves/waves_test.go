package waves

import (
	"math"
	"testing"
)

func TestSinePeriodicity(t *testing.T) {
	w := Sine(100, 2, 0.5, 0)
	if math.Abs(w[0]-0.5) > 1e-12 {
		t.Errorf("sample 0: got %g, want 0.5", w[0])
	}
	if math.Abs(w[25]-2.5) > 1e-9 {
		t.Errorf("quarter period: got %g, want 2.5", w[25])
	}
	if math.Abs(w[75]-(-1.5)) > 1e-9 {
		t.Errorf("three quarter period: got %g, want -1.5", w[75])
	}
}

func TestRampEndpoints(t *testing.T) {
	w := Ramp(11, -1, 1)
	if w[0] != -1 || w[10] != 1 {
		t.Errorf("endpoints: got %g, %g, want -1, 1", w[0], w[10])
	}
	if math.Abs(w[5]) > 1e-12 {
		t.Errorf("midpoint: got %g, want 0", w[5])
	}
}

func TestTriangleExtremes(t *testing.T) {
	w := Triangle(100, 1, 0)
	min, max := w[0], w[0]
	for _, v := range w {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if math.Abs(min+1) > 0.05 || math.Abs(max-1) > 0.05 {
		t.Errorf("extremes: got [%g, %g], want about [-1, 1]", min, max)
	}
}

func TestPulseDuty(t *testing.T) {
	w := Pulse(10, 1, 0, 0.3)
	for i, v := range w {
		want := -1.0
		if i < 3 {
			want = 1.0
		}
		if v != want {
			t.Errorf("sample %d: got %g, want %g", i, v, want)
		}
	}
}
