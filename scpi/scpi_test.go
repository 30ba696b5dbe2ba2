package scpi_test

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/qtlab/instruments/comm"
	"github.com/qtlab/instruments/scpi"
)

// scriptedDevice answers queries from the table and acks writes per the
// handshaking convention
func scriptedDevice(t *testing.T, replies map[string]string) string {
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				rdr := bufio.NewReader(c)
				for {
					line, err := rdr.ReadString('\n')
					if err != nil {
						return
					}
					line = strings.TrimRight(line, "\r\n")
					if resp, ok := replies[line]; ok {
						c.Write([]byte(resp + "\n"))
					}
				}
			}(conn)
		}
	}()
	return ln.Addr().String()
}

func newSCPI(t *testing.T, replies map[string]string) *scpi.SCPI {
	addr := scriptedDevice(t, replies)
	pool := comm.NewPool(1, time.Minute, comm.BackingOffTCPConnMaker(addr, time.Second))
	return &scpi.SCPI{Pool: pool}
}

func TestReadFloat(t *testing.T) {
	s := newSCPI(t, map[string]string{"FREQ?": "1.25E6"})
	f, err := s.ReadFloat("FREQ?")
	if err != nil {
		t.Fatal(err)
	}
	if f != 1.25e6 {
		t.Errorf("want 1.25e6, got %g", f)
	}
}

func TestReadBoolAcceptsMnemonics(t *testing.T) {
	cases := []struct {
		resp string
		want bool
	}{
		{"1", true},
		{"0", false},
		{"ON", true},
		{"OFF", false},
	}
	for _, tc := range cases {
		s := newSCPI(t, map[string]string{"OUTP?": tc.resp})
		b, err := s.ReadBool("OUTP?")
		if err != nil {
			t.Fatal(err)
		}
		if b != tc.want {
			t.Errorf("%q: want %v, got %v", tc.resp, tc.want, b)
		}
	}
}

func TestHandshakingWriteChecksErrorQueue(t *testing.T) {
	s := newSCPI(t, map[string]string{
		`*CLS; FREQ 100 ;:SYSTem:ERRor?`: `+0,"No error"`,
		`*CLS; VOLT 99 ;:SYSTem:ERRor?`:  `-222,"Data out of range"`,
	})
	s.Handshaking = true
	if err := s.Write("FREQ", "100"); err != nil {
		t.Errorf("accepted set reported error: %v", err)
	}
	if err := s.Write("VOLT", "99"); err == nil {
		t.Error("rejected set did not report an error")
	}
}

func TestRawRoutesQueriesAndWrites(t *testing.T) {
	s := newSCPI(t, map[string]string{"*IDN?": "ACME,WIDGET,0,1.0"})
	resp, err := s.Raw("*IDN?")
	if err != nil {
		t.Fatal(err)
	}
	if resp != "ACME,WIDGET,0,1.0" {
		t.Errorf("unexpected identification %q", resp)
	}
	if _, err := s.Raw("*RST"); err != nil {
		t.Errorf("write-only raw command errored: %v", err)
	}
}
