package usbtmc

import (
	"encoding/binary"
	"testing"
)

func TestBulkOutHeader(t *testing.T) {
	hdr := encBulkOutHeader(5, 37)
	if hdr[0] != 0x01 {
		t.Errorf("MsgID: got %#x, want 0x01", hdr[0])
	}
	if hdr[1] != 5 || hdr[2] != 0xfa {
		t.Errorf("bTag pair: got %#x/%#x, want 0x05/0xfa", hdr[1], hdr[2])
	}
	if got := binary.LittleEndian.Uint32(hdr[4:8]); got != 37 {
		t.Errorf("transferSize: got %d, want 37", got)
	}
	if hdr[8] != 0x01 {
		t.Errorf("EOM bit not set, byte 8 = %#x", hdr[8])
	}
}

func TestBulkInHeaderTerminator(t *testing.T) {
	term := byte('\n')
	hdr := encBulkInHeader(9, 1500, &term)
	if hdr[0] != 0x02 {
		t.Errorf("MsgID: got %#x, want 0x02", hdr[0])
	}
	if hdr[8] != 0x02 || hdr[9] != '\n' {
		t.Errorf("terminator bytes: got %#x/%#x", hdr[8], hdr[9])
	}
	hdr = encBulkInHeader(9, 1500, nil)
	if hdr[8] != 0x00 || hdr[9] != 0x00 {
		t.Errorf("nil terminator should clear bytes 8 and 9, got %#x/%#x", hdr[8], hdr[9])
	}
}

func TestBTagGenSkipsZero(t *testing.T) {
	g := &bTagGen{value: 254}
	if got := g.next(); got != 255 {
		t.Fatalf("got %d, want 255", got)
	}
	if got := g.next(); got != 1 {
		t.Fatalf("after wraparound got %d, want 1", got)
	}
}
