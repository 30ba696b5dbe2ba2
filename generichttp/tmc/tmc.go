// Package tmc provides HTTP interfaces to traditional test and measurement
// equipment, function generators, RF sources and the like
package tmc

import (
	generichttp "github.com/qtlab/instruments/generichttp"
	"github.com/qtlab/instruments/server"

	"goji.io/pat"
)

// FunctionGenerator describes an interface to a function generator
type FunctionGenerator interface {
	// SetFunction configures the output waveform shape
	SetFunction(string) error

	// GetFunction returns the current waveform shape
	GetFunction() (string, error)

	// SetFrequency configures the output frequency in Hz
	SetFrequency(float64) error

	// GetFrequency returns the output frequency in Hz
	GetFrequency() (float64, error)

	// SetVoltage configures the peak-to-peak amplitude in volts
	SetVoltage(float64) error

	// GetVoltage returns the peak-to-peak amplitude in volts
	GetVoltage() (float64, error)

	// SetOffset configures the DC offset in volts
	SetOffset(float64) error

	// GetOffset returns the DC offset in volts
	GetOffset() (float64, error)

	// SetOutputLoad configures the assumed load impedance in ohms
	SetOutputLoad(float64) error

	// EnableOutput turns the output on
	EnableOutput() error

	// DisableOutput turns the output off
	DisableOutput() error
}

// HTTPFunctionGenerator wraps a function generator in an HTTP route table
type HTTPFunctionGenerator struct {
	FG FunctionGenerator

	RouteTable server.RouteTable
}

// NewHTTPFunctionGenerator wraps fg with an HTTP interface
func NewHTTPFunctionGenerator(fg FunctionGenerator) HTTPFunctionGenerator {
	w := HTTPFunctionGenerator{FG: fg}
	rt := server.RouteTable{
		pat.Get("/function"):  generichttp.GetString(fg.GetFunction),
		pat.Post("/function"): generichttp.SetString(fg.SetFunction),

		pat.Get("/frequency"):  generichttp.GetFloat(fg.GetFrequency),
		pat.Post("/frequency"): generichttp.SetFloat(fg.SetFrequency),

		pat.Get("/voltage"):  generichttp.GetFloat(fg.GetVoltage),
		pat.Post("/voltage"): generichttp.SetFloat(fg.SetVoltage),

		pat.Get("/offset"):  generichttp.GetFloat(fg.GetOffset),
		pat.Post("/offset"): generichttp.SetFloat(fg.SetOffset),

		pat.Post("/output-load"): generichttp.SetFloat(fg.SetOutputLoad),

		pat.Post("/output"): generichttp.SetBool(generichttp.EnableBool(fg.EnableOutput, fg.DisableOutput)),
	}
	w.RouteTable = rt
	return w
}

// RT satisfies server.HTTPer
func (h HTTPFunctionGenerator) RT() server.RouteTable {
	return h.RouteTable
}

// RFSignalGenerator describes a CW microwave source
type RFSignalGenerator interface {
	// SetFrequency configures the carrier frequency in Hz
	SetFrequency(float64) error

	// GetFrequency returns the carrier frequency in Hz
	GetFrequency() (float64, error)

	// SetPower configures the output power in dBm
	SetPower(float64) error

	// GetPower returns the output power in dBm
	GetPower() (float64, error)

	// SetPhase configures the carrier phase in radians
	SetPhase(float64) error

	// GetPhase returns the carrier phase in radians
	GetPhase() (float64, error)

	// SetOutput turns the RF output on or off
	SetOutput(bool) error

	// GetOutput returns whether the RF output is on
	GetOutput() (bool, error)
}

// HTTPRFSignalGenerator wraps an RF source in an HTTP route table
type HTTPRFSignalGenerator struct {
	RF RFSignalGenerator

	RouteTable server.RouteTable
}

// NewHTTPRFSignalGenerator wraps rf with an HTTP interface
func NewHTTPRFSignalGenerator(rf RFSignalGenerator) HTTPRFSignalGenerator {
	w := HTTPRFSignalGenerator{RF: rf}
	rt := server.RouteTable{
		pat.Get("/frequency"):  generichttp.GetFloat(rf.GetFrequency),
		pat.Post("/frequency"): generichttp.SetFloat(rf.SetFrequency),

		pat.Get("/power"):  generichttp.GetFloat(rf.GetPower),
		pat.Post("/power"): generichttp.SetFloat(rf.SetPower),

		pat.Get("/phase"):  generichttp.GetFloat(rf.GetPhase),
		pat.Post("/phase"): generichttp.SetFloat(rf.SetPhase),

		pat.Get("/output"):  generichttp.GetBool(rf.GetOutput),
		pat.Post("/output"): generichttp.SetBool(rf.SetOutput),
	}
	w.RouteTable = rt
	return w
}

// RT satisfies server.HTTPer
func (h HTTPRFSignalGenerator) RT() server.RouteTable {
	return h.RouteTable
}
