// Package thinkrf provides remote control of ThinkRF real-time spectrum
// analyzers.  The instrument exposes two TCP sockets: a SCPI control
// socket on port 37001 and a VRT data socket on port 37000 that streams
// capture packets.
package thinkrf

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/qtlab/instruments/comm"
	"github.com/qtlab/instruments/scpi"
)

const (
	// ControlPort is the SCPI command socket
	ControlPort = 37001

	// DataPort is the VRT capture stream socket
	DataPort = 37000
)

// R5500 represents an R5500 real-time spectrum analyzer
type R5500 struct {
	scpi.SCPI

	// DataAddr is the VRT stream endpoint, host:37000 by default
	DataAddr string

	data net.Conn
}

// NewR5500 creates a new R5500 instance.  host is the bare hostname or
// IP; the two well-known ports are appended internally.
func NewR5500(host string) *R5500 {
	addr := fmt.Sprintf("%s:%d", host, ControlPort)
	maker := comm.BackingOffTCPConnMaker(addr, 3*time.Second)
	pool := comm.NewPool(1, 30*time.Second, maker)
	return &R5500{
		SCPI:     scpi.SCPI{Pool: pool},
		DataAddr: fmt.Sprintf("%s:%d", host, DataPort),
	}
}

// SetCenterFrequency sets the tuned center frequency in Hz
func (sa *R5500) SetCenterFrequency(hz float64) error {
	return sa.Write(fmt.Sprintf(":SENSE:FREQ:CENTER %d Hz", int64(hz)))
}

// GetCenterFrequency returns the tuned center frequency in Hz
func (sa *R5500) GetCenterFrequency() (float64, error) {
	return sa.ReadFloat(":SENSE:FREQ:CENTER?")
}

// SetFrequencyShift sets the frequency shift in Hz
func (sa *R5500) SetFrequencyShift(hz float64) error {
	return sa.Write(fmt.Sprintf(":SENSE:FREQ:SHIFT %d Hz", int64(hz)))
}

// GetFrequencyShift returns the frequency shift in Hz
func (sa *R5500) GetFrequencyShift() (float64, error) {
	return sa.ReadFloat(":SENSE:FREQ:SHIFT?")
}

// SetAttenuation sets the input attenuation in dB
func (sa *R5500) SetAttenuation(dB int) error {
	if dB < 0 || dB > 30 {
		return fmt.Errorf("attenuation %d out of range [0, 30]", dB)
	}
	return sa.Write(fmt.Sprintf(":INPUT:ATTENUATOR %d", dB))
}

// GetAttenuation returns the input attenuation in dB
func (sa *R5500) GetAttenuation() (int, error) {
	return sa.ReadInt(":INPUT:ATTENUATOR?")
}

// SetInputMode selects the receiver front end mode, one of
// ZIF, SH, SHN, HDR, DD
func (sa *R5500) SetInputMode(mode string) error {
	mode = strings.ToUpper(strings.TrimSpace(mode))
	switch mode {
	case "ZIF", "SH", "SHN", "HDR", "DD":
	default:
		return fmt.Errorf("unknown input mode %q", mode)
	}
	return sa.Write(":INPUT:MODE " + mode)
}

// GetInputMode returns the receiver front end mode
func (sa *R5500) GetInputMode() (string, error) {
	return sa.ReadString(":INPUT:MODE?")
}

// SetGain selects the preselect filter module gain, one of
// HIGH, MEDIUM, LOW
func (sa *R5500) SetGain(gain string) error {
	gain = strings.ToUpper(strings.TrimSpace(gain))
	switch gain {
	case "HIGH", "MEDIUM", "LOW":
	default:
		return fmt.Errorf("unknown gain %q", gain)
	}
	return sa.Write(":INPUT:GAIN:PSFM " + gain)
}

// GetGain returns the preselect filter module gain
func (sa *R5500) GetGain() (string, error) {
	return sa.ReadString(":INPUT:GAIN:PSFM?")
}

// SetDecimation sets the IQ decimation rate; 1 disables decimation
func (sa *R5500) SetDecimation(rate int) error {
	if rate != 1 && (rate < 4 || rate > 1024) {
		return fmt.Errorf("decimation %d out of range, must be 1 or [4, 1024]", rate)
	}
	return sa.Write(fmt.Sprintf(":SENSE:DECIMATION %d", rate))
}

// GetDecimation returns the IQ decimation rate
func (sa *R5500) GetDecimation() (int, error) {
	return sa.ReadInt(":SENSE:DECIMATION?")
}

// SetTriggerType selects the trigger type, one of NONE, LEVEL, PULSE
func (sa *R5500) SetTriggerType(typ string) error {
	typ = strings.ToUpper(strings.TrimSpace(typ))
	switch typ {
	case "NONE", "LEVEL", "PULSE":
	default:
		return fmt.Errorf("unknown trigger type %q", typ)
	}
	return sa.Write(":TRIGGER:TYPE " + typ)
}

// SetTriggerLevel configures a level trigger: start and stop bound the
// frequency window in Hz, amplitude is the threshold in dBm
func (sa *R5500) SetTriggerLevel(start, stop, amplitude float64) error {
	return sa.Write(fmt.Sprintf(":TRIGGER:LEVEL %d,%d,%d",
		int64(start), int64(stop), int64(amplitude)))
}

// GetTriggerLevel returns the level trigger start, stop and amplitude
func (sa *R5500) GetTriggerLevel() (start, stop, amplitude float64, err error) {
	resp, err := sa.ReadString(":TRIGGER:LEVEL?")
	if err != nil {
		return 0, 0, 0, err
	}
	pieces := strings.Split(resp, ",")
	if len(pieces) != 3 {
		return 0, 0, 0, fmt.Errorf("malformed trigger level reply %q", resp)
	}
	_, err = fmt.Sscanf(resp, "%f,%f,%f", &start, &stop, &amplitude)
	return start, stop, amplitude, err
}

// SetSamplesPerPacket sets the number of samples in each VRT data packet
func (sa *R5500) SetSamplesPerPacket(n int) error {
	if n < 256 || n > 32768 {
		return fmt.Errorf("samples per packet %d out of range [256, 32768]", n)
	}
	return sa.Write(fmt.Sprintf(":TRACE:SPP %d", n))
}

// SetPacketsPerBlock sets the number of VRT data packets in a capture block
func (sa *R5500) SetPacketsPerBlock(n int) error {
	if n < 1 {
		return fmt.Errorf("packets per block %d must be at least 1", n)
	}
	return sa.Write(fmt.Sprintf(":TRACE:BLOCK:PACKETS %d", n))
}

// Flush discards any capture data buffered in the instrument
func (sa *R5500) Flush() error {
	return sa.Write(":SYSTEM:FLUSH")
}

// RequestAcquisitionLock requests exclusive acquisition access.  Another
// client holding the lock makes this return false.
func (sa *R5500) RequestAcquisitionLock() (bool, error) {
	return sa.ReadBool(":SYSTEM:LOCK:REQUEST? ACQ")
}

// HaveAcquisitionLock reports whether this connection holds the
// acquisition lock
func (sa *R5500) HaveAcquisitionLock() (bool, error) {
	return sa.ReadBool(":SYSTEM:LOCK:HAVE? ACQ")
}

// dataConn lazily dials the VRT stream socket
func (sa *R5500) dataConn() (net.Conn, error) {
	if sa.data != nil {
		return sa.data, nil
	}
	conn, err := net.Dial("tcp", sa.DataAddr)
	if err != nil {
		return nil, err
	}
	sa.data = conn
	return conn, nil
}

// CaptureBlock arms a block capture of packets VRT data packets of spp
// samples each and reads it from the data socket.  Context packets
// interleaved in the stream are folded into the returned capture.
func (sa *R5500) CaptureBlock(spp, packets int) (*Capture, error) {
	if err := sa.SetSamplesPerPacket(spp); err != nil {
		return nil, err
	}
	if err := sa.SetPacketsPerBlock(packets); err != nil {
		return nil, err
	}
	if err := sa.Flush(); err != nil {
		return nil, err
	}
	if err := sa.Write(":TRACE:BLOCK:DATA?"); err != nil {
		return nil, err
	}
	conn, err := sa.dataConn()
	if err != nil {
		return nil, err
	}
	c := &Capture{}
	for len(c.Samples) < spp*packets {
		pkt, err := ReadPacket(conn)
		if err != nil {
			return nil, err
		}
		c.fold(pkt)
	}
	return c, nil
}

// Close releases the data socket.  The control socket pool reclaims
// itself when idle.
func (sa *R5500) Close() error {
	if sa.data == nil {
		return nil
	}
	err := sa.data.Close()
	sa.data = nil
	return err
}
