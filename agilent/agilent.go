// Package agilent provides an interface to agilent test and measurement
// equipment
package agilent

import (
	"strconv"
	"strings"
	"time"

	"github.com/tarm/serial"

	"github.com/qtlab/instruments/comm"
	"github.com/qtlab/instruments/scpi"
)

// makeSerConf makes a new serial.Config with correct parity, baud, etc, set.
func makeSerConf(addr string) *serial.Config {
	return &serial.Config{
		Name:        addr,
		Baud:        57600,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: 10 * time.Minute}
}

// FunctionGenerator is an interface to 33220A-class hardware
type FunctionGenerator struct {
	scpi.SCPI
}

// NewFunctionGenerator creates a new FunctionGenerator instance with
// the communication set up.  addr is a TCP host:port, or a serial
// device path when serialConn is true.
func NewFunctionGenerator(addr string, serialConn bool) *FunctionGenerator {
	var maker comm.CreationFunc
	if serialConn {
		maker = comm.SerialConnMaker(makeSerConf(addr))
	} else {
		maker = comm.BackingOffTCPConnMaker(addr, 3*time.Second)
	}
	pool := comm.NewPool(1, 30*time.Second, maker)
	return &FunctionGenerator{scpi.SCPI{Pool: pool}}
}

// SetFunction configures the output function used by the generator,
// e.g. SIN, SQU, RAMP, PULS, NOIS, DC
func (f *FunctionGenerator) SetFunction(fcn string) error {
	return f.Write("FUNC " + strings.ToUpper(fcn))
}

// GetFunction returns the current function type used by the generator
func (f *FunctionGenerator) GetFunction() (string, error) {
	return f.ReadString("FUNC?")
}

// SetFrequency configures the output frequency of the generator in Hz
func (f *FunctionGenerator) SetFrequency(hz float64) error {
	return f.Write("FREQ", strconv.FormatFloat(hz, 'G', -1, 64))
}

// GetFrequency returns the frequency of the generator in Hz
func (f *FunctionGenerator) GetFrequency() (float64, error) {
	return f.ReadFloat("FREQ?")
}

// SetVoltage configures the output voltage (Vpp) of the signal
func (f *FunctionGenerator) SetVoltage(volts float64) error {
	return f.Write("VOLT", strconv.FormatFloat(volts, 'G', -1, 64), "VPP")
}

// GetVoltage returns the current output voltage of the generator
func (f *FunctionGenerator) GetVoltage() (float64, error) {
	return f.ReadFloat("VOLT?")
}

// SetOffset configures the output voltage offset
func (f *FunctionGenerator) SetOffset(volts float64) error {
	return f.Write("VOLT:OFFSET", strconv.FormatFloat(volts, 'G', -1, 64))
}

// GetOffset gets the current voltage offset
func (f *FunctionGenerator) GetOffset() (float64, error) {
	return f.ReadFloat("VOLT:OFFSET?")
}

// SetOutputLoad configures the adjustments inside the generator for the
// impedance of the load circuit
func (f *FunctionGenerator) SetOutputLoad(ohms float64) error {
	return f.Write("OUTPUT:LOAD", strconv.FormatFloat(ohms, 'G', -1, 64))
}

// EnableOutput enables the output on the front connector of the
// function generator
func (f *FunctionGenerator) EnableOutput() error {
	return f.Write("OUTPUT ON")
}

// DisableOutput disables the output on the front connector of the
// function generator
func (f *FunctionGenerator) DisableOutput() error {
	return f.Write("OUTPUT OFF")
}

// GetOutput returns true if the generator is currently outputting a signal
func (f *FunctionGenerator) GetOutput() (bool, error) {
	return f.ReadBool("OUTPUT?")
}
