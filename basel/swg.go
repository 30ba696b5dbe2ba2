package basel

import (
	"fmt"

	"github.com/qtlab/instruments/util"
)

// Waveform is a standard waveform shape the SWG can synthesize
type Waveform int

// shapes accepted by "C SWG WF".  For a cosine select WaveformSine with a
// phase of 90 degrees.
const (
	WaveformSine        Waveform = 0
	WaveformTriangle    Waveform = 1
	WaveformSawtooth    Waveform = 2
	WaveformRamp        Waveform = 3
	WaveformPulse       Waveform = 4
	WaveformNoiseFixed  Waveform = 5
	WaveformNoiseRandom Waveform = 6
	WaveformDC          Waveform = 7
)

// WaveFunction dictates how an applied waveform combines with the contents
// of the selected wave memory
type WaveFunction int

// combination modes accepted by "C SWG WFUN"
const (
	FuncCopy        WaveFunction = 0
	FuncAppendStart WaveFunction = 1
	FuncAppendEnd   WaveFunction = 2
	FuncSumStart    WaveFunction = 3
	FuncSumEnd      WaveFunction = 4
	FuncMultStart   WaveFunction = 5
	FuncMultEnd     WaveFunction = 6
	FuncDivideStart WaveFunction = 7
	FuncDivideEnd   WaveFunction = 8
)

var (
	swgFreqRange = util.Limiter{Min: 0.001, Max: 10000}

	// amplitudes beyond the output span are allowed and produce
	// deliberately clipped waveforms
	swgAmpRange = util.Limiter{Min: -50, Max: 50}

	swgPhaseRange = util.Limiter{Min: -360, Max: 360}

	swgDutyRange = util.Limiter{Min: 0, Max: 100}
)

// SWG is the standard waveform generator, a single shared synthesis engine
// that renders waveforms into the wave memories
type SWG struct {
	d *SP1060
}

// SWG returns a handle to the standard waveform generator
func (d *SP1060) SWG() SWG {
	return SWG{d: d}
}

func (s SWG) write(cmd string, args ...interface{}) error {
	return s.d.write(famControl, "C SWG "+fmt.Sprintf(cmd, args...))
}

// SetSavedMode selects whether the SWG synthesizes a new waveform (false)
// or replays the one saved in WAV-S (true)
func (s SWG) SetSavedMode(saved bool) error {
	v := 0
	if saved {
		v = 1
	}
	return s.write("MODE %d", v)
}

// SavedMode reads whether the SWG is in saved-waveform mode
func (s SWG) SavedMode() (bool, error) {
	return s.d.queryBool("C SWG MODE?")
}

// SetWaveform selects the shape to synthesize
func (s SWG) SetWaveform(w Waveform) error {
	if w < WaveformSine || w > WaveformDC {
		return fmt.Errorf("waveform %d out of range [0, 7]", w)
	}
	return s.write("WF %d", int(w))
}

// Waveform reads the selected shape
func (s SWG) Waveform() (Waveform, error) {
	i, err := s.d.queryInt("C SWG WF?")
	return Waveform(i), err
}

// SetFrequency sets the desired waveform frequency in Hz
func (s SWG) SetFrequency(hz float64) error {
	if !swgFreqRange.Check(hz) {
		return swgFreqRange.Error("frequency", hz)
	}
	return s.write("DF %f", hz)
}

// Frequency reads the desired waveform frequency in Hz
func (s SWG) Frequency() (float64, error) {
	return s.d.queryFloat("C SWG DF?")
}

// SetAdaptClock selects whether synthesis keeps the board's AWG clock
// period (false) or adapts it to best fit the desired frequency (true).
// Adapting changes the period for the whole board, including the other
// AWG on it.
func (s SWG) SetAdaptClock(adapt bool) error {
	v := 0
	if adapt {
		v = 1
	}
	return s.write("ACLK %d", v)
}

// AdaptClock reads the clock adaptation flag
func (s SWG) AdaptClock() (bool, error) {
	return s.d.queryBool("C SWG ACLK?")
}

// SetAmplitude sets the waveform amplitude in volts peak.  Negative
// amplitudes flip the phase by 180 degrees.
func (s SWG) SetAmplitude(vp float64) error {
	if !swgAmpRange.Check(vp) {
		return swgAmpRange.Error("amplitude", vp)
	}
	return s.write("AMP %f", vp)
}

// Amplitude reads the waveform amplitude in volts peak
func (s SWG) Amplitude() (float64, error) {
	return s.d.queryFloat("C SWG AMP?")
}

// SetOffset sets the DC offset in volts
func (s SWG) SetOffset(v float64) error {
	if !voltRange.Check(v) {
		return voltRange.Error("offset", v)
	}
	return s.write("DCV %f", v)
}

// Offset reads the DC offset in volts
func (s SWG) Offset() (float64, error) {
	return s.d.queryFloat("C SWG DCV?")
}

// SetPhase sets the waveform phase in degrees
func (s SWG) SetPhase(deg float64) error {
	if !swgPhaseRange.Check(deg) {
		return swgPhaseRange.Error("phase", deg)
	}
	return s.write("PHA %f", deg)
}

// Phase reads the waveform phase in degrees
func (s SWG) Phase() (float64, error) {
	return s.d.queryFloat("C SWG PHA?")
}

// SetDutyCycle sets the pulse duty cycle in percent; 50 is a square wave
func (s SWG) SetDutyCycle(pct float64) error {
	if !swgDutyRange.Check(pct) {
		return swgDutyRange.Error("duty cycle", pct)
	}
	return s.write("DUC %f", pct)
}

// DutyCycle reads the pulse duty cycle in percent
func (s SWG) DutyCycle() (float64, error) {
	return s.d.queryFloat("C SWG DUC?")
}

// MemorySize reads the points needed to store the configured waveform
func (s SWG) MemorySize() (int, error) {
	return s.d.queryInt("C SWG MS?")
}

// NearestFrequency reads the closest achievable frequency given the clock
// setting; this is what the output will actually run at
func (s SWG) NearestFrequency() (float64, error) {
	return s.d.queryFloat("C SWG NF?")
}

// Clipping reads whether the configured waveform exceeds the output span
// anywhere
func (s SWG) Clipping() (bool, error) {
	return s.d.queryBool("C SWG CLP?")
}

// ClockPeriod reads the clock period synthesis will use, in microseconds
func (s SWG) ClockPeriod() (int, error) {
	return s.d.queryInt("C SWG CP?")
}

// SetWaveMemory selects the destination wave memory, "A"-"D"
func (s SWG) SetWaveMemory(mem string) error {
	i, err := wavIndex(mem)
	if err != nil {
		return err
	}
	return s.write("WMEM %d", i)
}

// WaveMemory reads the destination wave memory
func (s SWG) WaveMemory() (string, error) {
	i, err := s.d.queryInt("C SWG WMEM?")
	if err != nil {
		return "", err
	}
	return wavName(i)
}

// SetWaveFunction selects how Apply combines the synthesized waveform
// with the destination memory's contents
func (s SWG) SetWaveFunction(f WaveFunction) error {
	if f < FuncCopy || f > FuncDivideEnd {
		return fmt.Errorf("wave function %d out of range [0, 8]", f)
	}
	return s.write("WFUN %d", int(f))
}

// WaveFunction reads the combination mode
func (s SWG) WaveFunction() (WaveFunction, error) {
	i, err := s.d.queryInt("C SWG WFUN?")
	return WaveFunction(i), err
}

// SetLinearization records a channel number with the waveform; the
// channel's linearization is applied when the wave memory is copied to
// the AWG memory.  0 disables.
func (s SWG) SetLinearization(ch int) error {
	if ch != 0 {
		if err := checkChannel(ch); err != nil {
			return err
		}
	}
	return s.write("LIN %d", ch)
}

// Linearization reads the recorded linearization channel, 0 if disabled
func (s SWG) Linearization() (int, error) {
	return s.d.queryInt("C SWG LIN?")
}

// Apply renders the configured waveform into the selected wave memory.
// Without Apply nothing is written.
func (s SWG) Apply() error {
	return s.write("APPLY")
}
