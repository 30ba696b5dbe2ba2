// Package rohdeschwarz provides remote control of Rohde & Schwarz
// HMC804x bench power supplies (HMC8041/2/3).
package rohdeschwarz

import (
	"fmt"
	"time"

	"github.com/qtlab/instruments/comm"
	"github.com/qtlab/instruments/scpi"
)

// maxVoltage is the output ceiling shared by the whole family, volts
const maxVoltage = 32.050

// minCurrent is the smallest programmable current limit, amps
const minCurrent = 0.5e-3

// the per-channel current ceiling depends on how many outputs the
// model has
var maxCurrents = map[int]float64{1: 10.0, 2: 5.0, 3: 3.0}

// HMC804x represents an HMC8041, HMC8042 or HMC8043 power supply,
// distinguished by channel count
type HMC804x struct {
	scpi.SCPI

	numChannels int
	maxCurrent  float64
}

// NewHMC804x creates a new HMC804x instance at a TCP address
// ("host:port", port 5025).  numChannels selects the model, 1 to 3.
func NewHMC804x(addr string, numChannels int) (*HMC804x, error) {
	maxI, ok := maxCurrents[numChannels]
	if !ok {
		return nil, fmt.Errorf("no HMC804x model has %d channels", numChannels)
	}
	maker := comm.BackingOffTCPConnMaker(addr, 3*time.Second)
	pool := comm.NewPool(1, 30*time.Second, maker)
	return &HMC804x{
		SCPI:        scpi.SCPI{Pool: pool, Handshaking: true},
		numChannels: numChannels,
		maxCurrent:  maxI,
	}, nil
}

// MaxCurrent returns the per-channel current ceiling in amps
func (p *HMC804x) MaxCurrent() float64 {
	return p.maxCurrent
}

// SetMasterOutput switches all enabled channels on or off together
func (p *HMC804x) SetMasterOutput(on bool) error {
	return p.Write("OUTPut:MASTer:STATe " + onOff(on))
}

// GetMasterOutput returns the master output state
func (p *HMC804x) GetMasterOutput() (bool, error) {
	return p.ReadBool("OUTPut:MASTer:STATe?")
}

// Channel returns a handle to one output
func (p *HMC804x) Channel(n int) (*Channel, error) {
	if n < 1 || n > p.numChannels {
		return nil, fmt.Errorf("channel %d out of range [1, %d]", n, p.numChannels)
	}
	return &Channel{p: p, n: n}, nil
}

// Bipolar pairs two outputs into a virtual bipolar source: pos drives
// positive polarity, neg drives negative, and sign crossovers swap
// which channel is live
func (p *HMC804x) Bipolar(pos, neg int) (*BipolarPair, error) {
	pc, err := p.Channel(pos)
	if err != nil {
		return nil, err
	}
	nc, err := p.Channel(neg)
	if err != nil {
		return nil, err
	}
	if pos == neg {
		return nil, fmt.Errorf("bipolar pair needs two distinct channels, got %d twice", pos)
	}
	return &BipolarPair{Pos: pc, Neg: nc}, nil
}

func onOff(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Channel is one output of the supply.  Every command is prefixed with
// an instrument select so the handle is safe to interleave with others.
type Channel struct {
	p *HMC804x
	n int
}

func (c *Channel) sel() string {
	return fmt.Sprintf(":INSTrument:NSELect %d;", c.n)
}

// SetVoltage sets the target output voltage
func (c *Channel) SetVoltage(v float64) error {
	if v < 0 || v > maxVoltage {
		return fmt.Errorf("voltage %G out of range [0, %G]", v, maxVoltage)
	}
	return c.p.Write(c.sel(), fmt.Sprintf(":SOURce:VOLTage:LEVel:IMMediate:AMPLitude %G", v))
}

// GetVoltage returns the target output voltage
func (c *Channel) GetVoltage() (float64, error) {
	return c.p.ReadFloat(c.sel(), ":SOURce:VOLTage:LEVel:IMMediate:AMPLitude?")
}

// SetCurrent sets the current limit
func (c *Channel) SetCurrent(i float64) error {
	if i < minCurrent || i > c.p.maxCurrent {
		return fmt.Errorf("current %G out of range [%G, %G]", i, minCurrent, c.p.maxCurrent)
	}
	return c.p.Write(c.sel(), fmt.Sprintf(":SOURce:CURRent:LEVel:IMMediate:AMPLitude %G", i))
}

// GetCurrent returns the current limit
func (c *Channel) GetCurrent() (float64, error) {
	return c.p.ReadFloat(c.sel(), ":SOURce:CURRent:LEVel:IMMediate:AMPLitude?")
}

// SetOutput enables or disables the channel
func (c *Channel) SetOutput(on bool) error {
	return c.p.Write(c.sel(), ":OUTPut:CHANnel:STATe "+onOff(on))
}

// GetOutput returns whether the channel is enabled
func (c *Channel) GetOutput() (bool, error) {
	return c.p.ReadBool(c.sel(), ":OUTPut:CHANnel:STATe?")
}

// MeasureVoltage reads the voltage at the output terminals
func (c *Channel) MeasureVoltage() (float64, error) {
	return c.p.ReadFloat(c.sel(), ":MEASure:SCALar:VOLTage:DC?")
}

// MeasureCurrent reads the current flowing at the output terminals
func (c *Channel) MeasureCurrent() (float64, error) {
	return c.p.ReadFloat(c.sel(), ":MEASure:SCALar:CURRent:DC?")
}

// MeasurePower reads the power delivered at the output terminals
func (c *Channel) MeasurePower() (float64, error) {
	return c.p.ReadFloat(c.sel(), ":MEASure:SCALar:POWer?")
}

// SetSmartCurrent drives the channel as a current source: at or below
// the minimum programmable current the output voltage is forced to zero,
// above it the voltage rail opens to maximum and the current limit does
// the regulation.
func (c *Channel) SetSmartCurrent(i float64) error {
	if i > c.p.maxCurrent {
		return fmt.Errorf("current %G above the %G A ceiling", i, c.p.maxCurrent)
	}
	if i <= minCurrent {
		return c.p.Write(fmt.Sprintf("APPLy 0,%G,OUT%d", minCurrent, c.n))
	}
	return c.p.Write(fmt.Sprintf("APPLy MAX,%G,OUT%d", i, c.n))
}

// SmartCurrent returns the current set by SetSmartCurrent; a zeroed
// voltage rail reads as zero current
func (c *Channel) SmartCurrent() (float64, error) {
	v, err := c.GetVoltage()
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, nil
	}
	return c.GetCurrent()
}

// zero the output and disable it, the parked state for the inactive
// side of a bipolar pair
func (c *Channel) zeroAndOff() error {
	if err := c.SetVoltage(0); err != nil {
		return err
	}
	return c.SetOutput(false)
}

// BipolarPair presents two unipolar outputs as one bipolar source
type BipolarPair struct {
	Pos *Channel
	Neg *Channel
}

// active returns the live channel and its sign; nil when both outputs
// are parked
func (b *BipolarPair) active() (*Channel, float64, error) {
	pOn, err := b.Pos.GetOutput()
	if err != nil {
		return nil, 0, err
	}
	nOn, err := b.Neg.GetOutput()
	if err != nil {
		return nil, 0, err
	}
	if pOn && nOn {
		return nil, 0, fmt.Errorf("both sides of the bipolar pair are on")
	}
	if pOn {
		return b.Pos, 1, nil
	}
	if nOn {
		return b.Neg, -1, nil
	}
	return nil, 1, nil
}

// SetVoltage sets a signed voltage, parking the opposite-polarity
// channel before enabling the demanded one
func (b *BipolarPair) SetVoltage(v float64) error {
	live, parked := b.Pos, b.Neg
	if v < 0 {
		live, parked = b.Neg, b.Pos
		v = -v
	}
	if err := parked.zeroAndOff(); err != nil {
		return err
	}
	if err := live.SetVoltage(v); err != nil {
		return err
	}
	return live.SetOutput(true)
}

// GetVoltage returns the signed target voltage; an error when neither
// side is on, since the polarity is then unknown
func (b *BipolarPair) GetVoltage() (float64, error) {
	ch, sign, err := b.active()
	if err != nil {
		return 0, err
	}
	if ch == nil {
		return 0, fmt.Errorf("neither side of the bipolar pair is on, voltage unknown")
	}
	v, err := ch.GetVoltage()
	return sign * v, err
}

// MeasureVoltage returns the signed voltage at the live terminals
func (b *BipolarPair) MeasureVoltage() (float64, error) {
	ch, sign, err := b.active()
	if err != nil {
		return 0, err
	}
	if ch == nil {
		return 0, fmt.Errorf("neither side of the bipolar pair is on, voltage unknown")
	}
	v, err := ch.MeasureVoltage()
	return sign * v, err
}

// SetCurrent sets a signed current; zero parks both sides
func (b *BipolarPair) SetCurrent(i float64) error {
	switch {
	case i > 0:
		if err := b.Neg.zeroAndOff(); err != nil {
			return err
		}
		if err := b.Pos.SetSmartCurrent(i); err != nil {
			return err
		}
		return b.Pos.SetOutput(true)
	case i < 0:
		if err := b.Pos.zeroAndOff(); err != nil {
			return err
		}
		if err := b.Neg.SetSmartCurrent(-i); err != nil {
			return err
		}
		return b.Neg.SetOutput(true)
	default:
		if err := b.Pos.zeroAndOff(); err != nil {
			return err
		}
		return b.Neg.zeroAndOff()
	}
}

// GetCurrent returns the signed current set point; zero when both
// sides are parked
func (b *BipolarPair) GetCurrent() (float64, error) {
	ch, sign, err := b.active()
	if err != nil || ch == nil {
		return 0, err
	}
	i, err := ch.SmartCurrent()
	return sign * i, err
}

// MeasureCurrent returns the signed current at the live terminals;
// zero when both sides are parked
func (b *BipolarPair) MeasureCurrent() (float64, error) {
	ch, sign, err := b.active()
	if err != nil || ch == nil {
		return 0, err
	}
	i, err := ch.MeasureCurrent()
	return sign * i, err
}
