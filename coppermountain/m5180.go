// Package coppermountain provides remote control of Copper Mountain
// Technologies compact vector network analyzers.
package coppermountain

import (
	"fmt"
	"strings"
	"time"

	"github.com/qtlab/instruments/comm"
	"github.com/qtlab/instruments/scpi"
	"github.com/qtlab/instruments/util"
)

// traces are long comma lists of floats; far bigger than a control reply
const traceBufSize = 1 << 20

var (
	freqRange  = util.Limiter{Min: 3e5, Max: 18e9}
	powerRange = util.Limiter{Min: -50, Max: 10}
	ifbwRange  = util.Limiter{Min: 1, Max: 30e3}
)

// M5180 represents an M5180 18 GHz two port VNA
type M5180 struct {
	scpi.SCPI
}

// NewM5180 creates a new M5180 instance at a TCP address ("host:port").
// The VNA software listens on port 5025 by default.
func NewM5180(addr string) *M5180 {
	maker := comm.BackingOffTCPConnMaker(addr, 3*time.Second)
	pool := comm.NewPool(1, 30*time.Second, maker)
	return &M5180{scpi.SCPI{Pool: pool}}
}

// SetStartFrequency sets the sweep start in Hz
func (v *M5180) SetStartFrequency(hz float64) error {
	if !freqRange.Check(hz) {
		return freqRange.Error("start frequency", hz)
	}
	return v.Write(fmt.Sprintf("SENS:FREQ:STAR %G", hz))
}

// GetStartFrequency returns the sweep start in Hz
func (v *M5180) GetStartFrequency() (float64, error) {
	return v.ReadFloat("SENS:FREQ:STAR?")
}

// SetStopFrequency sets the sweep stop in Hz
func (v *M5180) SetStopFrequency(hz float64) error {
	if !freqRange.Check(hz) {
		return freqRange.Error("stop frequency", hz)
	}
	return v.Write(fmt.Sprintf("SENS:FREQ:STOP %G", hz))
}

// GetStopFrequency returns the sweep stop in Hz
func (v *M5180) GetStopFrequency() (float64, error) {
	return v.ReadFloat("SENS:FREQ:STOP?")
}

// SetCenterFrequency sets the sweep center in Hz
func (v *M5180) SetCenterFrequency(hz float64) error {
	if !freqRange.Check(hz) {
		return freqRange.Error("center frequency", hz)
	}
	return v.Write(fmt.Sprintf("SENS:FREQ:CENT %G", hz))
}

// GetCenterFrequency returns the sweep center in Hz
func (v *M5180) GetCenterFrequency() (float64, error) {
	return v.ReadFloat("SENS:FREQ:CENT?")
}

// SetSpan sets the sweep span in Hz.  A span of 0 produces a time sweep
// at the center frequency.
func (v *M5180) SetSpan(hz float64) error {
	if hz < 0 || hz > freqRange.Max {
		return fmt.Errorf("span %G out of range [0, %G]", hz, freqRange.Max)
	}
	return v.Write(fmt.Sprintf("SENS:FREQ:SPAN %G", hz))
}

// GetSpan returns the sweep span in Hz
func (v *M5180) GetSpan() (float64, error) {
	return v.ReadFloat("SENS:FREQ:SPAN?")
}

// SetPoints sets the number of sweep points
func (v *M5180) SetPoints(n int) error {
	if n < 2 || n > 200001 {
		return fmt.Errorf("points %d out of range [2, 200001]", n)
	}
	return v.Write(fmt.Sprintf("SENS:SWE:POIN %d", n))
}

// GetPoints returns the number of sweep points
func (v *M5180) GetPoints() (int, error) {
	return v.ReadInt("SENS:SWE:POIN?")
}

// SetIFBandwidth sets the IF bandwidth in Hz
func (v *M5180) SetIFBandwidth(hz float64) error {
	if !ifbwRange.Check(hz) {
		return ifbwRange.Error("IF bandwidth", hz)
	}
	return v.Write(fmt.Sprintf("SENS:BAND %.2f", hz))
}

// GetIFBandwidth returns the IF bandwidth in Hz
func (v *M5180) GetIFBandwidth() (float64, error) {
	return v.ReadFloat("SENS:BAND?")
}

// SetPower sets the stimulus power in dBm
func (v *M5180) SetPower(dBm float64) error {
	if !powerRange.Check(dBm) {
		return powerRange.Error("power", dBm)
	}
	return v.Write(fmt.Sprintf("SOUR:POW %.2f", dBm))
}

// GetPower returns the stimulus power in dBm
func (v *M5180) GetPower() (float64, error) {
	return v.ReadFloat("SOUR:POW?")
}

// SetOutput turns the stimulus on or off
func (v *M5180) SetOutput(on bool) error {
	s := "OFF"
	if on {
		s = "ON"
	}
	return v.Write("OUTP:STAT " + s)
}

// GetOutput returns whether the stimulus is on
func (v *M5180) GetOutput() (bool, error) {
	return v.ReadBool("OUTP:STAT?")
}

// SetAveraging turns sweep averaging on or off
func (v *M5180) SetAveraging(on bool) error {
	s := "OFF"
	if on {
		s = "ON"
	}
	return v.Write("SENS:AVER " + s)
}

// SetAverageCount sets the number of sweeps averaged
func (v *M5180) SetAverageCount(n int) error {
	if n < 1 || n > 999 {
		return fmt.Errorf("average count %d out of range [1, 999]", n)
	}
	return v.Write(fmt.Sprintf("SENS:AVER:COUN %d", n))
}

// ClearAverages restarts the averaging
func (v *M5180) ClearAverages() error {
	return v.Write("SENS:AVER:CLE")
}

// SetTraceParameter assigns an S parameter (e.g. "S11", "S21") to a trace
func (v *M5180) SetTraceParameter(trace int, sparam string) error {
	sparam = strings.ToUpper(strings.TrimSpace(sparam))
	switch sparam {
	case "S11", "S12", "S21", "S22":
	default:
		return fmt.Errorf("unknown S parameter %q", sparam)
	}
	return v.Write(fmt.Sprintf("CALC:PAR%d:DEF %s", trace, sparam))
}

// SelectTrace makes a trace the target of subsequent data commands
func (v *M5180) SelectTrace(trace int) error {
	return v.Write(fmt.Sprintf("CALC:PAR%d:SEL", trace))
}

// SetFormat selects the display format of the active trace, e.g. MLOG
// (log magnitude), PHAS, SWR, REAL, IMAG
func (v *M5180) SetFormat(format string) error {
	return v.Write("CALC:FORM " + strings.ToUpper(format))
}

// GetFormat returns the display format of the active trace
func (v *M5180) GetFormat() (string, error) {
	return v.ReadString("CALC:FORM?")
}

// SetTriggerSource selects the trigger source, INT/EXT/MAN/BUS
func (v *M5180) SetTriggerSource(src string) error {
	src = strings.ToUpper(strings.TrimSpace(src))
	switch src {
	case "INT", "EXT", "MAN", "BUS":
	default:
		return fmt.Errorf("unknown trigger source %q", src)
	}
	return v.Write("TRIG:SOUR " + src)
}

// SetContinuous turns continuous sweeping on or off
func (v *M5180) SetContinuous(on bool) error {
	s := "OFF"
	if on {
		s = "ON"
	}
	return v.Write("INIT:CONT " + s)
}

// Sweep triggers a single sweep and blocks until it completes
func (v *M5180) Sweep() error {
	if err := v.Write("TRIG:SEQ:SING"); err != nil {
		return err
	}
	return v.WaitOperationComplete()
}

// readLarge is a query whose reply can far exceed a control line
func (v *M5180) readLarge(cmd string) (string, error) {
	conn, err := v.Pool.Get()
	if err != nil {
		return "", err
	}
	var resp string
	wrap, err := comm.NewTimeout(conn, 30*time.Second)
	if err == nil {
		term := comm.NewTerminator(wrap, '\n', '\n')
		_, err = term.Write([]byte(cmd))
		if err == nil {
			buf := make([]byte, traceBufSize)
			var n int
			n, err = term.Read(buf)
			if err == nil {
				resp = strings.TrimRight(string(buf[:n]), "\r")
			}
		}
	}
	v.Pool.ReturnWithError(conn, err)
	return resp, err
}

// Trace reads the formatted data of the active trace.  The instrument
// interleaves a second value per point that is zero in scalar formats;
// only the first of each pair is returned.
func (v *M5180) Trace() ([]float64, error) {
	resp, err := v.readLarge("CALC:DATA:FDAT?")
	if err != nil {
		return nil, err
	}
	pairs, err := util.ParseFloatCSV(resp)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, pairs[i])
	}
	return out, nil
}

// FrequencyAxis reads the stimulus frequencies of the sweep in Hz
func (v *M5180) FrequencyAxis() ([]float64, error) {
	resp, err := v.readLarge("SENS:FREQ:DATA?")
	if err != nil {
		return nil, err
	}
	return util.ParseFloatCSV(resp)
}

// Acquire runs a single sweep and returns the formatted trace
func (v *M5180) Acquire() ([]float64, error) {
	if err := v.Sweep(); err != nil {
		return nil, err
	}
	return v.Trace()
}

// MarkerY reads the Y value of marker 1 on a trace; useful for zero-span
// time sweeps
func (v *M5180) MarkerY(trace int) (float64, error) {
	resp, err := v.ReadString(fmt.Sprintf("CALC1:TRAC%d:MARK:Y?", trace))
	if err != nil {
		return 0, err
	}
	vals, err := util.ParseFloatCSV(resp)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("empty marker reply %q", resp)
	}
	return vals[0], nil
}

// MeasureCycleTime reads the duration of one measurement cycle in seconds
func (v *M5180) MeasureCycleTime() (float64, error) {
	return v.ReadFloat("SYST:CYCL:TIME:MEAS?")
}
