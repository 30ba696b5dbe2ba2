package coppermountain

import (
	"bufio"
	"net"
	"strings"
	"testing"
)

func scriptedVNA(t *testing.T, script map[string]string) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				sc := bufio.NewScanner(c)
				for sc.Scan() {
					cmd := strings.TrimRight(sc.Text(), "\r")
					resp, ok := script[cmd]
					if !ok {
						t.Errorf("unexpected command %q", cmd)
						return
					}
					// bare set commands produce no reply
					if resp != "" {
						c.Write([]byte(resp + "\n"))
					}
				}
			}(conn)
		}
	}()
	return l.Addr().String()
}

func TestFrequencyPlan(t *testing.T) {
	v := NewM5180(scriptedVNA(t, map[string]string{
		"SENS:FREQ:STAR 1E+06": "",
		"SENS:FREQ:STOP 9E+09": "",
		"SENS:FREQ:CENT?":      "4.5005e9",
		"SENS:SWE:POIN 201":    "",
		"SENS:SWE:POIN?":       "201",
	}))
	if err := v.SetStartFrequency(1e6); err != nil {
		t.Fatal(err)
	}
	if err := v.SetStopFrequency(9e9); err != nil {
		t.Fatal(err)
	}
	c, err := v.GetCenterFrequency()
	if err != nil {
		t.Fatal(err)
	}
	if c != 4.5005e9 {
		t.Errorf("got center %G, want 4.5005e9", c)
	}
	if err := v.SetPoints(201); err != nil {
		t.Fatal(err)
	}
	n, err := v.GetPoints()
	if err != nil {
		t.Fatal(err)
	}
	if n != 201 {
		t.Errorf("got %d points, want 201", n)
	}
}

func TestFrequencyBounds(t *testing.T) {
	v := NewM5180("localhost:1")
	if err := v.SetStartFrequency(100e3); err == nil {
		t.Error("100 kHz is below the hardware floor and should be rejected")
	}
	if err := v.SetStopFrequency(20e9); err == nil {
		t.Error("20 GHz is above the hardware ceiling and should be rejected")
	}
}

func TestPowerBounds(t *testing.T) {
	v := NewM5180(scriptedVNA(t, map[string]string{
		"SOUR:POW -10.00": "",
		"SOUR:POW?":       "-10",
	}))
	if err := v.SetPower(-10); err != nil {
		t.Fatal(err)
	}
	p, err := v.GetPower()
	if err != nil {
		t.Fatal(err)
	}
	if p != -10 {
		t.Errorf("got %G dBm, want -10", p)
	}
	if err := v.SetPower(11); err == nil {
		t.Error("11 dBm is above the hardware ceiling and should be rejected")
	}
}

func TestTraceParameterValidation(t *testing.T) {
	v := NewM5180(scriptedVNA(t, map[string]string{
		"CALC:PAR1:DEF S11": "",
	}))
	if err := v.SetTraceParameter(1, "s11"); err != nil {
		t.Fatal(err)
	}
	if err := v.SetTraceParameter(1, "S31"); err == nil {
		t.Error("S31 does not exist on a two port instrument and should be rejected")
	}
}

func TestSweepAndTrace(t *testing.T) {
	v := NewM5180(scriptedVNA(t, map[string]string{
		"TRIG:SEQ:SING":   "",
		"*OPC?":           "1",
		"CALC:DATA:FDAT?": "-3.0,0,-3.5,0,-4.0,0",
	}))
	pts, err := v.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{-3, -3.5, -4}
	if len(pts) != len(want) {
		t.Fatalf("got %d points, want %d", len(pts), len(want))
	}
	for i := range want {
		if pts[i] != want[i] {
			t.Errorf("point %d: got %g, want %g", i, pts[i], want[i])
		}
	}
}

func TestMarkerY(t *testing.T) {
	v := NewM5180(scriptedVNA(t, map[string]string{
		"CALC1:TRAC1:MARK:Y?": "-12.5,0",
	}))
	y, err := v.MarkerY(1)
	if err != nil {
		t.Fatal(err)
	}
	if y != -12.5 {
		t.Errorf("got %G, want -12.5", y)
	}
}

func TestMarkerYEmptyReplyIsAnError(t *testing.T) {
	v := NewM5180(scriptedVNA(t, map[string]string{
		"CALC1:TRAC1:MARK:Y?": "\r",
	}))
	if _, err := v.MarkerY(1); err == nil {
		t.Error("empty marker reply did not error")
	}
}
