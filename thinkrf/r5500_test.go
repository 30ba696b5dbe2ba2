package thinkrf

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/qtlab/instruments/comm"
	"github.com/qtlab/instruments/scpi"
)

func appendU32(b []byte, w uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], w)
	return append(b, tmp[:]...)
}

func dataPacket(count int, samples []int16) []byte {
	size := 2 + len(samples)/2
	b := appendU32(nil, uint32(pktIFDataStream)<<28|uint32(count&0xF)<<16|uint32(size))
	b = appendU32(b, 0x90000003)
	for _, s := range samples {
		b = append(b, byte(uint16(s)>>8), byte(uint16(s)))
	}
	return b
}

func contextPacket(freqHz float64, refLevel float64) []byte {
	b := appendU32(nil, uint32(pktContext)<<28|6)
	b = appendU32(b, 0x90000003)
	b = appendU32(b, ctxRFFrequency|ctxRefLevel)
	fixed := uint64(freqHz * (1 << 20))
	b = appendU32(b, uint32(fixed>>32))
	b = appendU32(b, uint32(fixed))
	b = appendU32(b, uint32(uint16(int16(refLevel*128))))
	return b
}

func TestReadDataPacket(t *testing.T) {
	samples := []int16{100, -200, 300, -400}
	p, err := ReadPacket(bytes.NewReader(dataPacket(7, samples)))
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsData() {
		t.Fatal("expected a data packet")
	}
	if p.Count != 7 {
		t.Errorf("got count %d, want 7", p.Count)
	}
	if p.StreamID != 0x90000003 {
		t.Errorf("got stream ID %08X, want 90000003", p.StreamID)
	}
	if len(p.Samples) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(p.Samples), len(samples))
	}
	for i := range samples {
		if p.Samples[i] != samples[i] {
			t.Errorf("sample %d: got %d, want %d", i, p.Samples[i], samples[i])
		}
	}
}

func TestReadContextPacket(t *testing.T) {
	p, err := ReadPacket(bytes.NewReader(contextPacket(1e9, -30)))
	if err != nil {
		t.Fatal(err)
	}
	if p.IsData() {
		t.Fatal("expected a context packet")
	}
	if p.Fields.RFFrequency != 1e9 {
		t.Errorf("got RF frequency %G, want 1e9", p.Fields.RFFrequency)
	}
	if p.Fields.ReferenceLevel != -30 {
		t.Errorf("got reference level %G, want -30", p.Fields.ReferenceLevel)
	}
}

func TestReadPacketTruncated(t *testing.T) {
	pkt := dataPacket(0, []int16{1, 2})
	if _, err := ReadPacket(bytes.NewReader(pkt[:6])); err == nil {
		t.Error("truncated packet should fail to parse")
	}
}

func scriptedControl(t *testing.T, script map[string]string) string {
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

func newAnalyzer(controlAddr, dataAddr string) *R5500 {
	maker := comm.BackingOffTCPConnMaker(controlAddr, time.Second)
	pool := comm.NewPool(1, time.Minute, maker)
	return &R5500{SCPI: scpi.SCPI{Pool: pool}, DataAddr: dataAddr}
}

func TestInputModeValidation(t *testing.T) {
	sa := newAnalyzer(scriptedControl(t, map[string]string{
		":INPUT:MODE SH": "",
		":INPUT:MODE?":   "SH",
	}), "")
	if err := sa.SetInputMode("sh"); err != nil {
		t.Fatal(err)
	}
	mode, err := sa.GetInputMode()
	if err != nil {
		t.Fatal(err)
	}
	if mode != "SH" {
		t.Errorf("got mode %q, want SH", mode)
	}
	if err := sa.SetInputMode("XYZ"); err == nil {
		t.Error("unknown input mode should be rejected")
	}
}

func TestTriggerLevel(t *testing.T) {
	sa := newAnalyzer(scriptedControl(t, map[string]string{
		":TRIGGER:LEVEL 2400000000,2500000000,-50": "",
		":TRIGGER:LEVEL?":                          "2400000000,2500000000,-50",
	}), "")
	if err := sa.SetTriggerLevel(2.4e9, 2.5e9, -50); err != nil {
		t.Fatal(err)
	}
	start, stop, amp, err := sa.GetTriggerLevel()
	if err != nil {
		t.Fatal(err)
	}
	if start != 2.4e9 || stop != 2.5e9 || amp != -50 {
		t.Errorf("got %G,%G,%G, want 2.4e9,2.5e9,-50", start, stop, amp)
	}
}

func TestCaptureBlock(t *testing.T) {
	samples := make([]int16, 256)
	for i := range samples {
		samples[i] = int16(i - 128)
	}

	control := scriptedControl(t, map[string]string{
		":TRACE:SPP 256":          "",
		":TRACE:BLOCK:PACKETS 1":  "",
		":SYSTEM:FLUSH":           "",
		":TRACE:BLOCK:DATA?":      "",
	})

	dl, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { dl.Close() })
	go func() {
		conn, err := dl.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write(contextPacket(1e9, -30))
		conn.Write(dataPacket(0, samples))
	}()

	sa := newAnalyzer(control, dl.Addr().String())
	defer sa.Close()
	block, err := sa.CaptureBlock(256, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(block.Samples) != 256 {
		t.Fatalf("got %d samples, want 256", len(block.Samples))
	}
	if block.RFFrequency != 1e9 {
		t.Errorf("got RF frequency %G, want 1e9", block.RFFrequency)
	}
	norm := block.Normalized()
	if norm[0] != -128.0/32768 {
		t.Errorf("got normalized sample %G, want %G", norm[0], -128.0/32768)
	}
}
