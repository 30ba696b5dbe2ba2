package anapico

import (
	"bufio"
	"net"
	"strings"
	"testing"
)

func scriptedGenerator(t *testing.T, script map[string]string) string {
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
					if resp, ok := script[cmd]; ok {
						c.Write([]byte(resp + "\n"))
					}
				}
			}(conn)
		}
	}()
	return l.Addr().String()
}

func TestFrequency(t *testing.T) {
	a := NewAPSIN20G(scriptedGenerator(t, map[string]string{
		"*CLS; :FREQuency 1000000000.000 ;:SYSTem:ERRor?": `+0,"No error"`,
		"*CLS; :FREQuency? ;:SYSTem:ERRor?":                `1e9;+0,"No error"`,
	}))
	if err := a.SetFrequency(1e9); err != nil {
		t.Fatal(err)
	}
	f, err := a.GetFrequency()
	if err != nil {
		t.Fatal(err)
	}
	if f != 1e9 {
		t.Errorf("got %G, want 1e9", f)
	}
}

func TestFrequencyBounds(t *testing.T) {
	a := NewAPSIN20G("localhost:1")
	if err := a.SetFrequency(50e3); err == nil {
		t.Error("50 kHz is below the hardware floor and should be rejected")
	}
	if err := a.SetFrequency(25e9); err == nil {
		t.Error("25 GHz is above the hardware ceiling and should be rejected")
	}
}

func TestPowerAndOutput(t *testing.T) {
	a := NewAPSIN20G(scriptedGenerator(t, map[string]string{
		"*CLS; POWer -10.00 ;:SYSTem:ERRor?":  `+0,"No error"`,
		"*CLS; :OUTPut ON ;:SYSTem:ERRor?":    `+0,"No error"`,
		"*CLS; :OUTPut1? ;:SYSTem:ERRor?":     `1;+0,"No error"`,
	}))
	if err := a.SetPower(-10); err != nil {
		t.Fatal(err)
	}
	if err := a.SetOutput(true); err != nil {
		t.Fatal(err)
	}
	on, err := a.GetOutput()
	if err != nil {
		t.Fatal(err)
	}
	if !on {
		t.Error("output should read back on")
	}
}

func TestRejectedCommandSurfacesDeviceError(t *testing.T) {
	a := NewAPSIN20G(scriptedGenerator(t, map[string]string{
		"*CLS; POWer 10.00 ;:SYSTem:ERRor?": `-222,"Data out of range"`,
	}))
	err := a.SetPower(10)
	if err == nil {
		t.Fatal("device error should propagate")
	}
	if !strings.Contains(err.Error(), "-222") {
		t.Errorf("error %q should carry the device code", err)
	}
}

func TestPhaseDegreesConvert(t *testing.T) {
	a := NewAPSIN20G(scriptedGenerator(t, map[string]string{
		"*CLS; :PHASe 3.141592654 ;:SYSTem:ERRor?": `+0,"No error"`,
	}))
	if err := a.SetPhaseDeg(180); err != nil {
		t.Fatal(err)
	}
	if err := a.SetPhaseDeg(400); err == nil {
		t.Error("phases beyond 360 degrees should be rejected")
	}
}
