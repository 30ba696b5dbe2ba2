// Package ivvi provides remote control of QuTech IVVI rack D5 DAC modules.
//
// The rack speaks a binary framed protocol over serial (115200 baud, odd
// parity).  Each frame is [length, error code, payload...]; the first
// payload byte of a request is the expected reply length, so reads are
// exact-length with no terminators.
package ivvi

import (
	"fmt"
	"io"
	"time"

	"github.com/qtlab/instruments/comm"

	"github.com/tarm/serial"
)

const (
	// FullRange is the output span of a DAC in volts
	FullRange = 4.0

	commTimeout = 3 * time.Second
)

// Polarity is the output polarity of a rack of 4 DACs, set by front-panel
// jumpers.  The rack does not report it; the driver must be told.
type Polarity string

// the three rack polarities
const (
	Bipolar  Polarity = "BIP"
	Positive Polarity = "POS"
	Negative Polarity = "NEG"
)

// Offset returns the voltage the all-zeros DAC code maps to
func (p Polarity) Offset() (float64, error) {
	switch p {
	case Bipolar:
		return -FullRange / 2, nil
	case Positive:
		return 0, nil
	case Negative:
		return -FullRange, nil
	}
	return 0, fmt.Errorf("invalid polarity %q, want BIP/POS/NEG", string(p))
}

// IVVI talks to an IVVI rack's DAC modules
type IVVI struct {
	pool *comm.Pool

	numDACs int

	// offsets holds the per-channel polarity offset in volts
	offsets []float64

	// Step and InterDelay bound the output slew of SetDAC, like the
	// hardware's own stepped updates.  Step <= 0 disables.
	Step       float64
	InterDelay time.Duration
}

// New returns a driver for a rack with numDACs channels (a positive
// multiple of 4) and one polarity per group of 4 channels
func New(maker comm.CreationFunc, numDACs int, polarity []Polarity) (*IVVI, error) {
	if numDACs <= 0 || numDACs%4 != 0 {
		return nil, fmt.Errorf("numDACs must be a positive multiple of 4, got %d", numDACs)
	}
	if len(polarity) != numDACs/4 {
		return nil, fmt.Errorf("need %d polarities for %d DACs, got %d", numDACs/4, numDACs, len(polarity))
	}
	offsets := make([]float64, numDACs)
	for i := range offsets {
		off, err := polarity[i/4].Offset()
		if err != nil {
			return nil, err
		}
		offsets[i] = off
	}
	return &IVVI{
		pool:       comm.NewPool(1, 30*time.Second, maker),
		numDACs:    numDACs,
		offsets:    offsets,
		Step:       0.010,
		InterDelay: 100 * time.Millisecond,
	}, nil
}

// NewSerial returns a driver talking over a serial port.  The rack wants
// 115200 baud with odd parity.
func NewSerial(port string, numDACs int, polarity []Polarity) (*IVVI, error) {
	cfg := &serial.Config{
		Name:        port,
		Baud:        115200,
		Parity:      serial.ParityOdd,
		StopBits:    serial.Stop1,
		ReadTimeout: commTimeout,
	}
	return New(comm.SerialConnMaker(cfg), numDACs, polarity)
}

// NewTCP returns a driver talking through a serial-over-TCP bridge
func NewTCP(addr string, numDACs int, polarity []Polarity) (*IVVI, error) {
	return New(comm.BackingOffTCPConnMaker(addr, commTimeout), numDACs, polarity)
}

// voltToCode converts a polarity-corrected voltage to a 16-bit DAC code
func voltToCode(v float64) (uint16, error) {
	if v < 0 || v > FullRange {
		return 0, fmt.Errorf("corrected voltage %g outside the DAC span [0, %g]", v, FullRange)
	}
	return uint16(v/FullRange*65535 + 0.5), nil
}

// codeToVolt converts a 16-bit DAC code to a voltage above the polarity
// offset
func codeToVolt(code uint16) float64 {
	return float64(code) / 65535 * FullRange
}

// ask frames payload, sends it and reads the exact-length reply.
// payload[0] is the expected reply length per the protocol.
func (d *IVVI) ask(payload []byte) ([]byte, error) {
	conn, err := d.pool.Get()
	if err != nil {
		return nil, err
	}
	var reply []byte
	wrap, err := comm.NewTimeout(conn, commTimeout)
	if err == nil {
		frame := make([]byte, 0, len(payload)+2)
		frame = append(frame, byte(len(payload)+2), 0)
		frame = append(frame, payload...)
		_, err = wrap.Write(frame)
		if err == nil {
			reply = make([]byte, payload[0])
			_, err = io.ReadFull(wrap, reply)
		}
	}
	d.pool.ReturnWithError(conn, err)
	if err != nil {
		return nil, err
	}
	if len(reply) >= 2 && reply[1] != 0 {
		return reply, fmt.Errorf("rack error code %d", reply[1])
	}
	return reply, nil
}

func (d *IVVI) checkChannel(ch int) error {
	if ch < 1 || ch > d.numDACs {
		return fmt.Errorf("channel %d out of range [1, %d]", ch, d.numDACs)
	}
	return nil
}

// setDACRaw writes one channel in a single step
func (d *IVVI) setDACRaw(ch int, v float64) error {
	code, err := voltToCode(v - d.offsets[ch-1])
	if err != nil {
		return err
	}
	payload := []byte{2, 1, byte(ch), byte(code >> 8), byte(code)}
	_, err = d.ask(payload)
	return err
}

// SetDAC writes a channel voltage, decomposing moves larger than Step
// into Step-sized writes separated by InterDelay
func (d *IVVI) SetDAC(ch int, v float64) error {
	if err := d.checkChannel(ch); err != nil {
		return err
	}
	off := d.offsets[ch-1]
	if v < off || v > off+FullRange {
		return fmt.Errorf("voltage %g out of range [%g, %g] for channel %d", v, off, off+FullRange, ch)
	}
	if d.Step <= 0 {
		return d.setDACRaw(ch, v)
	}
	cur, err := d.DAC(ch)
	if err != nil {
		return err
	}
	for {
		delta := v - cur
		if delta < 0 {
			delta = -delta
		}
		if delta <= d.Step {
			return d.setDACRaw(ch, v)
		}
		if v > cur {
			cur += d.Step
		} else {
			cur -= d.Step
		}
		if err := d.setDACRaw(ch, cur); err != nil {
			return err
		}
		time.Sleep(d.InterDelay)
	}
}

// DACs reads back all channel voltages in one transaction
func (d *IVVI) DACs() ([]float64, error) {
	payload := []byte{byte(d.numDACs*2 + 2), 2}
	reply, err := d.ask(payload)
	if err != nil {
		return nil, err
	}
	if len(reply) < d.numDACs*2+2 {
		return nil, fmt.Errorf("short reply, %d bytes for %d DACs", len(reply), d.numDACs)
	}
	out := make([]float64, d.numDACs)
	for i := 0; i < d.numDACs; i++ {
		code := uint16(reply[2+2*i])<<8 | uint16(reply[3+2*i])
		out[i] = codeToVolt(code) + d.offsets[i]
	}
	return out, nil
}

// DAC reads back one channel voltage
func (d *IVVI) DAC(ch int) (float64, error) {
	if err := d.checkChannel(ch); err != nil {
		return 0, err
	}
	vs, err := d.DACs()
	if err != nil {
		return 0, err
	}
	return vs[ch-1], nil
}

// Output satisfies the DAC interface of generichttp/daq
func (d *IVVI) Output(ch int, v float64) error {
	return d.SetDAC(ch, v)
}

// Voltage satisfies the DAC interface of generichttp/daq
func (d *IVVI) Voltage(ch int) (float64, error) {
	return d.DAC(ch)
}

// OutputMulti writes several channels; the slices must be of equal length
func (d *IVVI) OutputMulti(chs []int, vs []float64) error {
	if len(chs) != len(vs) {
		return fmt.Errorf("%d channels but %d voltages", len(chs), len(vs))
	}
	for i, ch := range chs {
		if err := d.SetDAC(ch, vs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Zero drives every channel to 0 V
func (d *IVVI) Zero() error {
	for ch := 1; ch <= d.numDACs; ch++ {
		if err := d.SetDAC(ch, 0); err != nil {
			return err
		}
	}
	return nil
}

// Polarity returns the configured polarity of a channel
func (d *IVVI) Polarity(ch int) (Polarity, error) {
	if err := d.checkChannel(ch); err != nil {
		return "", err
	}
	switch d.offsets[ch-1] {
	case -FullRange:
		return Negative, nil
	case -FullRange / 2:
		return Bipolar, nil
	default:
		return Positive, nil
	}
}

// Version queries the module firmware version.  Older modules do not
// answer this command.
func (d *IVVI) Version() (int, error) {
	reply, err := d.ask([]byte{3, 4})
	if err != nil {
		return 0, err
	}
	if len(reply) < 3 {
		return 0, fmt.Errorf("short version reply, %d bytes", len(reply))
	}
	return int(reply[2]), nil
}

// Trigger emits a trigger pulse from the rack
func (d *IVVI) Trigger() error {
	_, err := d.ask([]byte{2, 6})
	return err
}
