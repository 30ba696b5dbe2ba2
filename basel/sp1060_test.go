package basel

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"
)

// scriptedDAC runs a TCP listener that answers exact command lines from
// the script map, CRLF framing both ways
func scriptedDAC(t *testing.T, script map[string]string) string {
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
						resp = "4"
					}
					c.Write([]byte(resp + "\r\n"))
				}
			}(conn)
		}
	}()
	return l.Addr().String()
}

func newDAC(t *testing.T, script map[string]string) *SP1060 {
	d := NewSP1060(scriptedDAC(t, script))
	d.Step = 0 // no slew decomposition against a scripted device
	return d
}

func TestSetVoltageImmediate(t *testing.T) {
	d := newDAC(t, map[string]string{
		"1 7FFFFF": "0",
	})
	if err := d.SetVoltageImmediate(1, 0); err != nil {
		t.Fatal(err)
	}
}

func TestSetVoltageNotAllowed(t *testing.T) {
	d := newDAC(t, map[string]string{
		"2 FFFFFF": "5",
	})
	err := d.SetVoltageImmediate(2, 10)
	if err == nil {
		t.Fatal("expected an error for a generator-owned channel")
	}
	ce, ok := err.(*CmdError)
	if !ok {
		t.Fatalf("got %T, want *CmdError", err)
	}
	if !ce.NotAllowed() {
		t.Errorf("code %d should report NotAllowed", ce.Code)
	}
}

func TestVoltageReadback(t *testing.T) {
	d := newDAC(t, map[string]string{
		"5 V?": "800000",
	})
	v, err := d.Voltage(5)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1e-6 {
		t.Errorf("got %g, want 1e-6", v)
	}
}

func TestChannelBounds(t *testing.T) {
	d := newDAC(t, nil)
	if err := d.On(0); err == nil {
		t.Error("channel 0 should be rejected locally")
	}
	if err := d.On(25); err == nil {
		t.Error("channel 25 should be rejected locally")
	}
	if _, err := d.Voltage(25); err == nil {
		t.Error("channel 25 should be rejected locally")
	}
}

func TestAllStatuses(t *testing.T) {
	d := newDAC(t, map[string]string{
		"ALL S?": "ON;OFF;ON",
	})
	s, err := d.AllStatuses()
	if err != nil {
		t.Fatal(err)
	}
	want := []bool{true, false, true}
	if len(s) != len(want) {
		t.Fatalf("got %d statuses, want %d", len(s), len(want))
	}
	for i := range want {
		if s[i] != want[i] {
			t.Errorf("status %d: got %v, want %v", i, s[i], want[i])
		}
	}
}

func TestBandwidth(t *testing.T) {
	d := newDAC(t, map[string]string{
		"3 BW?":  "HBW",
		"3 LBW":  "0",
		"ALL ON": "0",
	})
	bw, err := d.GetBandwidth(3)
	if err != nil {
		t.Fatal(err)
	}
	if bw != HighBandwidth {
		t.Errorf("got %s, want HBW", bw)
	}
	if err := d.SetBandwidth(3, LowBandwidth); err != nil {
		t.Fatal(err)
	}
	if err := d.AllOn(); err != nil {
		t.Fatal(err)
	}
}

func TestRampStateAndControl(t *testing.T) {
	d := newDAC(t, map[string]string{
		"C RMP-A S?":    "2",
		"C RMP-A START": "0",
		"C RMP-A CH 7":  "0",
		"C RMP-A CH?":   "7",
	})
	r, err := d.Ramp("a")
	if err != nil {
		t.Fatal(err)
	}
	st, err := r.State()
	if err != nil {
		t.Fatal(err)
	}
	if st != RampDown {
		t.Errorf("got state %v, want ramping down", st)
	}
	if err := r.SetChannel(7); err != nil {
		t.Fatal(err)
	}
	ch, err := r.Channel()
	if err != nil {
		t.Fatal(err)
	}
	if ch != 7 {
		t.Errorf("got channel %d, want 7", ch)
	}
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
}

func TestAWGChannelBounds(t *testing.T) {
	d := newDAC(t, map[string]string{
		"C AWG-C CH 13": "0",
	})
	a, err := d.AWG("C")
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SetChannel(5); err == nil {
		t.Error("AWG-C should reject channels below 13")
	}
	if err := a.SetChannel(13); err != nil {
		t.Fatal(err)
	}
}

func TestAWGBoardCommands(t *testing.T) {
	d := newDAC(t, map[string]string{
		"C AWG-AB CP 1000": "0",
		"C AWG-AB CP?":     "1000",
		"C AWG-CD ONLY 1":  "0",
	})
	a, err := d.AWG("B")
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SetClockPeriod(1000); err != nil {
		t.Fatal(err)
	}
	cp, err := a.ClockPeriod()
	if err != nil {
		t.Fatal(err)
	}
	if cp != 1000 {
		t.Errorf("got %d, want 1000", cp)
	}
	c, err := d.AWG("D")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetExclusive(true); err != nil {
		t.Fatal(err)
	}
}

func TestAWGAllStartStop(t *testing.T) {
	d := newDAC(t, map[string]string{
		"C AWG-ALL START": "0",
		"C AWG-ALL STOP":  "0",
	})
	if err := d.StartAllAWGs(); err != nil {
		t.Fatal(err)
	}
	if err := d.StopAllAWGs(); err != nil {
		t.Fatal(err)
	}
}

func TestWaveMemoryBlock(t *testing.T) {
	d := newDAC(t, map[string]string{
		"WAV-B 0 BLK?": "0;999999;FFFFFF",
		"C WAV-B CLR":  "0",
	})
	w, err := d.WaveMemory("B")
	if err != nil {
		t.Fatal(err)
	}
	pts, err := w.Block(0)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{-10, 2, 10}
	if len(pts) != len(want) {
		t.Fatalf("got %d points, want %d", len(pts), len(want))
	}
	for i := range want {
		if pts[i] != want[i] {
			t.Errorf("point %d: got %g, want %g", i, pts[i], want[i])
		}
	}
	if err := w.Clear(); err != nil {
		t.Fatal(err)
	}
}

func TestUploadWaveform(t *testing.T) {
	d := newDAC(t, map[string]string{
		"C WAV-B CLR":    "0",
		"WAV-B 0 999999": "0",
		"WAV-B 1 999999": "0",
		"WAV-B 2 999999": "0",
		"WAV-B 3 999999": "0",
		"C AWG-B CH 3":   "0",
		"C WAV-B WRITE":  "0",
		"C WAV-B BUSY?":  "0",
		"C AWG-B START":  "0",
	})
	err := d.UploadWaveform(HostWaveformConfig{
		Channel:  3,
		Memory:   "B",
		Waveform: WaveformDC,
		Points:   4,
		Offset:   2,
		Start:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRenderShapes(t *testing.T) {
	saw, err := Render(WaveformSawtooth, 4, 1, 0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{-1, -0.5, 0, 0.5}
	for i := range want {
		if saw[i] != want[i] {
			t.Errorf("sawtooth point %d: got %g, want %g", i, saw[i], want[i])
		}
	}
	if _, err := Render(Waveform(42), 4, 1, 0, 0, 0); err == nil {
		t.Error("unknown waveform did not error")
	}
}

func TestPolynomial(t *testing.T) {
	d := newDAC(t, map[string]string{
		"POLY-A 0.5 1 0.25": "0",
		"POLY-A?":           "0.5;1;0.25",
	})
	if err := d.SetPolynomial("A", []float64{0.5, 1, 0.25}); err != nil {
		t.Fatal(err)
	}
	coefs, err := d.Polynomial("A")
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0.5, 1, 0.25}
	for i := range want {
		if coefs[i] != want[i] {
			t.Errorf("coef %d: got %g, want %g", i, coefs[i], want[i])
		}
	}
}

func TestScan1D(t *testing.T) {
	var sets []float64
	set := func(v float64) error {
		sets = append(sets, v)
		return nil
	}
	i := 0
	measure := func() (float64, error) {
		i++
		return float64(i), nil
	}
	data, err := Scan1D(set, -1, 1, 5, time.Microsecond, measure)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 5 || data[4] != 5 {
		t.Errorf("got %v, want 5 sequential measurements", data)
	}
	if sets[0] != -1 || sets[4] != 1 {
		t.Errorf("scan endpoints: got %g, %g, want -1, 1", sets[0], sets[4])
	}
	if sets[2] != 0 {
		t.Errorf("scan midpoint: got %g, want 0", sets[2])
	}
}
