package util

import "testing"

func TestIntSliceToCSV(t *testing.T) {
	got := IntSliceToCSV([]int{1, 2, 3, 4, 5})
	want := "1,2,3,4,5"
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestParseFloatCSV(t *testing.T) {
	got, err := ParseFloatCSV(" 1.5, -2 , 3e3 \r\n")
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1.5, -2, 3000}
	if len(got) != len(want) {
		t.Fatalf("got %d values, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %g, want %g", i, got[i], want[i])
		}
	}
}

func TestLimiter(t *testing.T) {
	l := Limiter{Min: -10, Max: 10}
	cases := []struct {
		v  float64
		ok bool
	}{
		{0, true},
		{-10, true},
		{10, true},
		{10.0001, false},
		{-11, false},
	}
	for _, c := range cases {
		if got := l.Check(c.v); got != c.ok {
			t.Errorf("Check(%g): got %v, want %v", c.v, got, c.ok)
		}
	}
	if got := l.Clamp(12); got != 10 {
		t.Errorf("Clamp(12): got %g, want 10", got)
	}
}
