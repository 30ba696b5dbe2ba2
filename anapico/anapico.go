// Package anapico provides remote control of AnaPico APSIN series RF
// signal generators.
package anapico

import (
	"fmt"
	"math"
	"time"

	"github.com/qtlab/instruments/comm"
	"github.com/qtlab/instruments/scpi"
	"github.com/qtlab/instruments/util"
)

var (
	freqRange  = util.Limiter{Min: 100e3, Max: 20e9}
	powerRange = util.Limiter{Min: -90, Max: 15}
	phaseRange = util.Limiter{Min: 0, Max: 2 * math.Pi}

	// frequencies the reference oscillator will lock to externally
	extRefRange = util.Limiter{Min: 1e6, Max: 250e6}
)

// APSIN20G represents an APSIN20G 20 GHz signal generator
type APSIN20G struct {
	scpi.SCPI
}

// NewAPSIN20G creates a new APSIN20G instance at a TCP address ("host:port")
func NewAPSIN20G(addr string) *APSIN20G {
	maker := comm.BackingOffTCPConnMaker(addr, 3*time.Second)
	pool := comm.NewPool(1, 30*time.Second, maker)
	return &APSIN20G{scpi.SCPI{Pool: pool, Handshaking: true}}
}

// SetOutput turns the RF output on or off
func (a *APSIN20G) SetOutput(on bool) error {
	v := "OFF"
	if on {
		v = "ON"
	}
	return a.Write(":OUTPut " + v)
}

// GetOutput returns whether the RF output is on
func (a *APSIN20G) GetOutput() (bool, error) {
	return a.ReadBool(":OUTPut1?")
}

// SetFrequency sets the carrier frequency in Hz
func (a *APSIN20G) SetFrequency(hz float64) error {
	if !freqRange.Check(hz) {
		return freqRange.Error("frequency", hz)
	}
	return a.Write(fmt.Sprintf(":FREQuency %.3f", hz))
}

// GetFrequency returns the carrier frequency in Hz
func (a *APSIN20G) GetFrequency() (float64, error) {
	return a.ReadFloat(":FREQuency?")
}

// SetPower sets the output power in dBm
func (a *APSIN20G) SetPower(dBm float64) error {
	if !powerRange.Check(dBm) {
		return powerRange.Error("power", dBm)
	}
	return a.Write(fmt.Sprintf("POWer %.2f", dBm))
}

// GetPower returns the output power in dBm
func (a *APSIN20G) GetPower() (float64, error) {
	return a.ReadFloat("POWer?")
}

// SetPhase sets the carrier phase in radians, [0, 2pi]
func (a *APSIN20G) SetPhase(rad float64) error {
	if !phaseRange.Check(rad) {
		return phaseRange.Error("phase", rad)
	}
	return a.Write(fmt.Sprintf(":PHASe %.9f", rad))
}

// GetPhase returns the carrier phase in radians
func (a *APSIN20G) GetPhase() (float64, error) {
	return a.ReadFloat(":PHASe?")
}

// SetPhaseDeg sets the carrier phase in degrees, [0, 360]
func (a *APSIN20G) SetPhaseDeg(deg float64) error {
	if deg < 0 || deg > 360 {
		return fmt.Errorf("phase %g out of range [0, 360]", deg)
	}
	return a.SetPhase(deg * math.Pi / 180)
}

// GetPhaseDeg returns the carrier phase in degrees
func (a *APSIN20G) GetPhaseDeg() (float64, error) {
	rad, err := a.GetPhase()
	return rad * 180 / math.Pi, err
}

// SetDisplayEnabled turns the front panel display on or off
func (a *APSIN20G) SetDisplayEnabled(on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	return a.Write(":DISPlay:ENABle " + v)
}

// GetDisplayEnabled returns whether the front panel display is on
func (a *APSIN20G) GetDisplayEnabled() (bool, error) {
	return a.ReadBool(":DISPlay:ENABle?")
}

// SetRefOscSource selects the reference oscillator source, INT or EXT
func (a *APSIN20G) SetRefOscSource(src string) error {
	if src != "INT" && src != "EXT" {
		return fmt.Errorf("reference source %q not INT or EXT", src)
	}
	return a.Write("ROSCillator:SOURce " + src)
}

// GetRefOscSource returns the reference oscillator source
func (a *APSIN20G) GetRefOscSource() (string, error) {
	return a.ReadString("ROSCillator:SOURce?")
}

// SetRefOscExternalFreq sets the expected external reference frequency in Hz
func (a *APSIN20G) SetRefOscExternalFreq(hz float64) error {
	if !extRefRange.Check(hz) {
		return extRefRange.Error("external reference frequency", hz)
	}
	return a.Write(fmt.Sprintf("ROSCillator:EXTernal:FREQuency %G", hz))
}

// GetRefOscExternalFreq returns the expected external reference frequency
func (a *APSIN20G) GetRefOscExternalFreq() (float64, error) {
	return a.ReadFloat("ROSCillator:EXTernal:FREQuency?")
}

// SetRefOscOutputFreq sets the reference output frequency; the hardware
// offers 10 MHz or 100 MHz
func (a *APSIN20G) SetRefOscOutputFreq(hz float64) error {
	if hz != 10e6 && hz != 100e6 {
		return fmt.Errorf("reference output must be 10e6 or 100e6 Hz, got %G", hz)
	}
	return a.Write(fmt.Sprintf("ROSC:OUTPut:FREQuency %G", hz))
}

// GetRefOscOutputFreq returns the reference output frequency in Hz
func (a *APSIN20G) GetRefOscOutputFreq() (float64, error) {
	return a.ReadFloat("ROSC:OUTPut:FREQuency?")
}

// Reset restores the instrument to its power-on state
func (a *APSIN20G) Reset() error {
	return a.Write("*RST")
}

// SelfTest runs the instrument self test; a zero result is a pass
func (a *APSIN20G) SelfTest() (bool, error) {
	i, err := a.ReadInt("*TST?")
	return i == 0, err
}
