package basel

import (
	"math"
	"testing"
)

func TestVoltToCode(t *testing.T) {
	cases := []struct {
		v    float64
		code uint32
	}{
		{-10, 0},
		{0, 0x7FFFFF},
		{10, 0xFFFFFF},
	}
	for _, c := range cases {
		got, err := VoltToCode(c.v)
		if err != nil {
			t.Fatalf("VoltToCode(%g): %v", c.v, err)
		}
		if got != c.code {
			t.Errorf("VoltToCode(%g): got %X, want %X", c.v, got, c.code)
		}
	}
	if _, err := VoltToCode(10.5); err == nil {
		t.Error("VoltToCode(10.5) should error")
	}
	if _, err := VoltToCode(-11); err == nil {
		t.Error("VoltToCode(-11) should error")
	}
}

func TestEncodeVoltUppercase(t *testing.T) {
	s, err := EncodeVolt(10)
	if err != nil {
		t.Fatal(err)
	}
	if s != "FFFFFF" {
		t.Errorf("got %s, want FFFFFF", s)
	}
}

func TestDecodeVolt(t *testing.T) {
	cases := []struct {
		in string
		v  float64
	}{
		{"0", -10},
		{"800000", 1e-6},
		{"FFFFFF", 10},
		{"  7fffff \r\n", -1e-6},
	}
	for _, c := range cases {
		got, err := DecodeVolt(c.in)
		if err != nil {
			t.Fatalf("DecodeVolt(%q): %v", c.in, err)
		}
		if math.Abs(got-c.v) > 1e-6 {
			t.Errorf("DecodeVolt(%q): got %g, want %g", c.in, got, c.v)
		}
	}
}

func TestDecodeVoltRejectsGarbage(t *testing.T) {
	if _, err := DecodeVolt("XYZ"); err == nil {
		t.Error("malformed hex should error")
	}
	if _, err := DecodeVolt("1FFFFFF"); err == nil {
		t.Error("codes over 24 bits should error")
	}
}

func TestRoundTripResolution(t *testing.T) {
	for _, v := range []float64{-9.5, -0.123456, 0, 1.25, 9.999999} {
		code, err := VoltToCode(v)
		if err != nil {
			t.Fatal(err)
		}
		back := CodeToVolt(code)
		if math.Abs(back-v) > 2e-6 {
			t.Errorf("round trip of %g came back as %g", v, back)
		}
	}
}
