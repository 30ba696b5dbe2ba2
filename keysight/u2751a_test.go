package keysight

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/qtlab/instruments/comm"
)

func scriptedMatrix(t *testing.T, script map[string]string) comm.CreationFunc {
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
	return comm.BackingOffTCPConnMaker(l.Addr().String(), time.Second)
}

func TestCoordinateFormat(t *testing.T) {
	cases := []struct {
		row, column, want int
	}{
		{1, 1, 101},
		{1, 8, 108},
		{4, 1, 401},
		{4, 8, 408},
	}
	for _, tc := range cases {
		got, err := coord(tc.row, tc.column)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("coord(%d,%d): got %d, want %d", tc.row, tc.column, got, tc.want)
		}
	}
	if _, err := coord(5, 1); err == nil {
		t.Error("row 5 is off the matrix and should be rejected")
	}
	if _, err := coord(1, 9); err == nil {
		t.Error("column 9 is off the matrix and should be rejected")
	}
}

func TestRelayFlip(t *testing.T) {
	m := NewU2751A(scriptedMatrix(t, map[string]string{
		"ROUTe:CLOSe (@203)": "",
		"ROUTe:OPEN (@203)":  "",
		"ROUTe:OPEN? (@203)": "0",
	}), 0)
	if err := m.CloseRelay(2, 3); err != nil {
		t.Fatal(err)
	}
	open, err := m.IsOpen(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if open {
		t.Error("relay should read closed")
	}
	if err := m.OpenRelay(2, 3); err != nil {
		t.Fatal(err)
	}
}

func TestCycles(t *testing.T) {
	m := NewU2751A(scriptedMatrix(t, map[string]string{
		"DIAG:REL:CYCL? (@101)": "12345",
	}), 0)
	n, err := m.Cycles(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 12345 {
		t.Errorf("got %d cycles, want 12345", n)
	}
}

func TestConnectIsExclusivePerRow(t *testing.T) {
	script := map[string]string{
		"ROUTe:CLOSe (@305)": "",
		"ROUTe:OPEN (@302)":  "",
	}
	// column 2 reads closed, everything else open
	for c := 1; c <= NumColumns; c++ {
		state := "1"
		if c == 2 {
			state = "0"
		}
		script["ROUTe:OPEN? (@30"+string(rune('0'+c))+")"] = state
	}
	m := NewU2751A(scriptedMatrix(t, script), 0)
	if err := m.Connect(3, 5); err != nil {
		t.Fatal(err)
	}
}

func TestRelayDelay(t *testing.T) {
	m := NewU2751A(scriptedMatrix(t, map[string]string{
		"ROUTe:CLOSe (@101)": "",
	}), 20*time.Millisecond)
	start := time.Now()
	if err := m.CloseRelay(1, 1); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("relay settle of %v is shorter than the configured delay", elapsed)
	}
}
