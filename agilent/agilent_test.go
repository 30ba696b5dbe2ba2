package agilent

import (
	"bufio"
	"net"
	"strings"
	"testing"

	"github.com/qtlab/instruments/generichttp/tmc"
)

var _ tmc.FunctionGenerator = (*FunctionGenerator)(nil)

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
					if resp, ok := script[cmd]; ok && resp != "" {
						c.Write([]byte(resp + "\n"))
					}
				}
			}(conn)
		}
	}()
	return l.Addr().String()
}

func TestFunctionAndFrequency(t *testing.T) {
	f := NewFunctionGenerator(scriptedGenerator(t, map[string]string{
		"FUNC SIN":   "",
		"FUNC?":      "SIN",
		"FREQ 1000":  "",
		"FREQ?":      "1000",
	}), false)
	if err := f.SetFunction("sin"); err != nil {
		t.Fatal(err)
	}
	fcn, err := f.GetFunction()
	if err != nil {
		t.Fatal(err)
	}
	if fcn != "SIN" {
		t.Errorf("got function %q, want SIN", fcn)
	}
	if err := f.SetFrequency(1000); err != nil {
		t.Fatal(err)
	}
	hz, err := f.GetFrequency()
	if err != nil {
		t.Fatal(err)
	}
	if hz != 1000 {
		t.Errorf("got %G Hz, want 1000", hz)
	}
}

func TestVoltageAndOutput(t *testing.T) {
	f := NewFunctionGenerator(scriptedGenerator(t, map[string]string{
		"VOLT 0.5 VPP":    "",
		"VOLT?":           "0.5",
		"VOLT:OFFSET 0.1": "",
		"OUTPUT ON":       "",
		"OUTPUT?":         "1",
	}), false)
	if err := f.SetVoltage(0.5); err != nil {
		t.Fatal(err)
	}
	v, err := f.GetVoltage()
	if err != nil {
		t.Fatal(err)
	}
	if v != 0.5 {
		t.Errorf("got %G Vpp, want 0.5", v)
	}
	if err := f.SetOffset(0.1); err != nil {
		t.Fatal(err)
	}
	if err := f.EnableOutput(); err != nil {
		t.Fatal(err)
	}
	on, err := f.GetOutput()
	if err != nil {
		t.Fatal(err)
	}
	if !on {
		t.Error("output should read on")
	}
}
