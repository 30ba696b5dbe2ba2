package ivvi

import (
	"encoding/binary"
	"io"
	"math"
	"net"
	"testing"
)

// rackServer emulates the binary framing of a 16 DAC rack over TCP
func rackServer(t *testing.T, codes []uint16) string {
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
				for {
					hdr := make([]byte, 2)
					if _, err := io.ReadFull(c, hdr); err != nil {
						return
					}
					payload := make([]byte, int(hdr[0])-2)
					if _, err := io.ReadFull(c, payload); err != nil {
						return
					}
					switch payload[1] {
					case 1: // set dac
						ch := int(payload[2])
						codes[ch-1] = binary.BigEndian.Uint16(payload[3:5])
						c.Write([]byte{2, 0})
					case 2: // read all dacs
						out := make([]byte, 2+2*len(codes))
						out[0] = byte(len(out))
						for i, code := range codes {
							binary.BigEndian.PutUint16(out[2+2*i:], code)
						}
						c.Write(out)
					case 4: // version
						c.Write([]byte{3, 0, 11})
					case 6: // trigger
						c.Write([]byte{2, 0})
					}
				}
			}(conn)
		}
	}()
	return l.Addr().String()
}

func newRack(t *testing.T, codes []uint16) *IVVI {
	pol := []Polarity{Bipolar, Bipolar, Positive, Negative}
	d, err := NewTCP(rackServer(t, codes), 16, pol)
	if err != nil {
		t.Fatal(err)
	}
	d.Step = 0
	return d
}

func TestSetAndReadDAC(t *testing.T) {
	codes := make([]uint16, 16)
	d := newRack(t, codes)
	// bipolar channel: 0 V sits mid-code
	if err := d.SetDAC(1, 0); err != nil {
		t.Fatal(err)
	}
	if codes[0] != 32768 {
		t.Errorf("0 V on a bipolar channel: got code %d, want 32768", codes[0])
	}
	v, err := d.DAC(1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(v) > 1e-4 {
		t.Errorf("read back %g, want ~0", v)
	}
}

func TestPolarityBounds(t *testing.T) {
	codes := make([]uint16, 16)
	d := newRack(t, codes)
	// channel 9 is in the POS rack: [0, 4]
	if err := d.SetDAC(9, -0.5); err == nil {
		t.Error("negative voltage on a positive rack should be rejected")
	}
	if err := d.SetDAC(9, 3.5); err != nil {
		t.Errorf("3.5 V on a positive rack should be allowed: %v", err)
	}
	// channel 13 is in the NEG rack: [-4, 0]
	if err := d.SetDAC(13, 0.5); err == nil {
		t.Error("positive voltage on a negative rack should be rejected")
	}
}

func TestPolarityReadout(t *testing.T) {
	codes := make([]uint16, 16)
	d := newRack(t, codes)
	cases := []struct {
		ch   int
		want Polarity
	}{
		{1, Bipolar},
		{9, Positive},
		{13, Negative},
	}
	for _, c := range cases {
		got, err := d.Polarity(c.ch)
		if err != nil {
			t.Fatal(err)
		}
		if got != c.want {
			t.Errorf("channel %d: got %s, want %s", c.ch, got, c.want)
		}
	}
}

func TestVersionAndTrigger(t *testing.T) {
	codes := make([]uint16, 16)
	d := newRack(t, codes)
	v, err := d.Version()
	if err != nil {
		t.Fatal(err)
	}
	if v != 11 {
		t.Errorf("got version %d, want 11", v)
	}
	if err := d.Trigger(); err != nil {
		t.Fatal(err)
	}
}

func TestBadConfig(t *testing.T) {
	if _, err := NewTCP("localhost:1", 15, nil); err == nil {
		t.Error("numDACs not a multiple of 4 should error")
	}
	if _, err := NewTCP("localhost:1", 16, []Polarity{Bipolar}); err == nil {
		t.Error("too few polarities should error")
	}
}
