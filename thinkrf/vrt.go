package thinkrf

import (
	"encoding/binary"
	"fmt"
	"io"
)

// VITA 49 packet types seen on the data socket
const (
	pktIFData        = 0x0
	pktIFDataStream  = 0x1
	pktExtData       = 0x2
	pktExtDataStream = 0x3
	pktContext       = 0x4
)

// context indicator bits
const (
	ctxBandwidth   = 1 << 29
	ctxRFFrequency = 1 << 27
	ctxRefLevel    = 1 << 24
)

// words occupied by each context field, indexed by indicator bit
var ctxFieldWords = map[uint]int{
	31: 0, // field change flag, no payload
	30: 1, // reference point ID
	29: 2, // bandwidth
	28: 2, // IF reference frequency
	27: 2, // RF reference frequency
	26: 2, // RF frequency offset
	25: 2, // IF band offset
	24: 1, // reference level
	23: 1, // gain
	22: 1, // over-range count
	21: 2, // sample rate
	20: 2, // timestamp adjustment
	19: 1, // timestamp calibration time
	18: 1, // temperature
	17: 2, // device ID
	16: 1, // state and event indicators
	15: 2, // data payload format
}

// ContextFields is the subset of VRT context data the capture path uses
type ContextFields struct {
	// Has holds the raw indicator word; test individual bits against
	// the ctx constants
	Has uint32

	RFFrequency    float64
	Bandwidth      float64
	ReferenceLevel float64
}

// Packet is one VITA 49 packet from the data socket
type Packet struct {
	Type     int
	Count    int
	StreamID uint32

	TimestampSec  uint32
	TimestampPico uint64

	// Samples is populated for data packets
	Samples []int16

	// Fields is populated for context packets
	Fields ContextFields
}

// IsData reports whether the packet carries samples
func (p *Packet) IsData() bool {
	return p.Type == pktIFData || p.Type == pktIFDataStream
}

// ReadPacket reads one VRT packet from the stream
func ReadPacket(r io.Reader) (*Packet, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	word := binary.BigEndian.Uint32(hdr[:])
	p := &Packet{
		Type:  int(word >> 28),
		Count: int(word>>16) & 0xF,
	}
	hasClass := word&(1<<27) != 0
	hasTrailer := p.Type <= pktExtDataStream && word&(1<<26) != 0
	tsi := (word >> 22) & 0x3
	tsf := (word >> 20) & 0x3
	size := int(word & 0xFFFF)
	if size < 1 {
		return nil, fmt.Errorf("malformed VRT header %08X", word)
	}

	hasStream := p.Type == pktIFDataStream || p.Type == pktExtDataStream ||
		p.Type == pktContext
	prologue := 0
	if hasStream {
		prologue++
	}
	if hasClass {
		prologue += 2
	}
	if tsi != 0 {
		prologue++
	}
	if tsf != 0 {
		prologue += 2
	}
	trailerWords := 0
	if hasTrailer {
		trailerWords = 1
	}
	if size-1 < prologue+trailerWords {
		return nil, fmt.Errorf("VRT packet size %d too small for its prologue", size)
	}

	body := make([]byte, (size-1)*4)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	off := 0
	next := func() uint32 {
		w := binary.BigEndian.Uint32(body[off:])
		off += 4
		return w
	}

	if hasStream {
		p.StreamID = next()
	}
	if hasClass {
		off += 8
	}
	if tsi != 0 {
		p.TimestampSec = next()
	}
	if tsf != 0 {
		p.TimestampPico = uint64(next())<<32 | uint64(next())
	}

	payload := body[off : len(body)-trailerWords*4]
	if p.Type == pktContext {
		return p, parseContext(p, payload)
	}
	p.Samples = make([]int16, len(payload)/2)
	for i := range p.Samples {
		p.Samples[i] = int16(binary.BigEndian.Uint16(payload[2*i:]))
	}
	return p, nil
}

// parseContext walks the indicator-driven field list, keeping the fields
// the capture path cares about
func parseContext(p *Packet, payload []byte) error {
	if len(payload) < 4 {
		return fmt.Errorf("context packet with no indicator word")
	}
	ind := binary.BigEndian.Uint32(payload)
	p.Fields.Has = ind
	off := 4
	for bit := uint(31); bit >= 15; bit-- {
		if ind&(1<<bit) == 0 {
			continue
		}
		words, ok := ctxFieldWords[bit]
		if !ok {
			return fmt.Errorf("context packet with unsupported field bit %d", bit)
		}
		if off+words*4 > len(payload) {
			return fmt.Errorf("context packet truncated at field bit %d", bit)
		}
		switch 1 << bit {
		case ctxBandwidth:
			p.Fields.Bandwidth = fixed64(payload[off:])
		case ctxRFFrequency:
			p.Fields.RFFrequency = fixed64(payload[off:])
		case ctxRefLevel:
			w := binary.BigEndian.Uint32(payload[off:])
			p.Fields.ReferenceLevel = float64(int16(w&0xFFFF)) / 128
		}
		off += words * 4
	}
	return nil
}

// fixed64 decodes the 64-bit fixed point format with a 20 bit radix used
// for frequencies and bandwidths, yielding Hz
func fixed64(b []byte) float64 {
	v := int64(binary.BigEndian.Uint64(b))
	return float64(v) / (1 << 20)
}

// Capture accumulates the packets of one block capture
type Capture struct {
	Samples []int16

	RFFrequency    float64
	Bandwidth      float64
	ReferenceLevel float64
}

func (c *Capture) fold(p *Packet) {
	if p.IsData() {
		c.Samples = append(c.Samples, p.Samples...)
		return
	}
	if p.Type != pktContext {
		return
	}
	if p.Fields.Has&ctxRFFrequency != 0 {
		c.RFFrequency = p.Fields.RFFrequency
	}
	if p.Fields.Has&ctxBandwidth != 0 {
		c.Bandwidth = p.Fields.Bandwidth
	}
	if p.Fields.Has&ctxRefLevel != 0 {
		c.ReferenceLevel = p.Fields.ReferenceLevel
	}
}

// Normalized returns the samples scaled to [-1, 1)
func (c *Capture) Normalized() []float64 {
	out := make([]float64, len(c.Samples))
	for i, s := range c.Samples {
		out[i] = float64(s) / 32768
	}
	return out
}
