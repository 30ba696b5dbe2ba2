package basel

import (
	"fmt"
	"strings"

	"github.com/qtlab/instruments/util"
)

// memory and clock bounds of the arbitrary waveform generators
var (
	memSizeRange = util.Limiter{Min: 2, Max: 34000}

	// AWG clock period in microseconds, shared per board pair
	clockRange = util.Limiter{Min: 10, Max: 4e9}
)

// TriggerMode is the external trigger behavior of an AWG
type TriggerMode int

// trigger modes accepted by "C AWG-x TM"
const (
	TriggerDisabled  TriggerMode = 0
	TriggerStartOnly TriggerMode = 1
	TriggerStartStop TriggerMode = 2
	TriggerStep      TriggerMode = 3
)

// AWG addresses one of the four arbitrary waveform generators AWG-A/B/C/D.
// AWG-A and AWG-B can only drive channels 1-12 (lower board), AWG-C and
// AWG-D channels 13-24.  The two AWGs of a board share a clock period.
type AWG struct {
	d   *SP1060
	gen string
}

// AWG returns a handle to generator "A", "B", "C" or "D"
func (d *SP1060) AWG(gen string) (AWG, error) {
	gen = strings.ToUpper(strings.TrimSpace(gen))
	switch gen {
	case "A", "B", "C", "D":
		return AWG{d: d, gen: gen}, nil
	}
	return AWG{}, fmt.Errorf("no AWG %q, want A/B/C/D", gen)
}

// board returns the board pair designator, AB or CD
func (a AWG) board() string {
	if a.gen == "A" || a.gen == "B" {
		return "AB"
	}
	return "CD"
}

// channelRange returns the channels this AWG may drive
func (a AWG) channelRange() (int, int) {
	if a.board() == "AB" {
		return 1, 12
	}
	return 13, 24
}

func (a AWG) write(cmd string, args ...interface{}) error {
	full := fmt.Sprintf("C AWG-%s %s", a.gen, fmt.Sprintf(cmd, args...))
	return a.d.write(famControl, full)
}

// Start begins waveform playback on the selected channel
func (a AWG) Start() error {
	return a.write("START")
}

// Stop halts waveform playback
func (a AWG) Stop() error {
	return a.write("STOP")
}

// StartBoard starts both AWGs of this generator's board synchronously
func (a AWG) StartBoard() error {
	return a.d.write(famControl, fmt.Sprintf("C AWG-%s START", a.board()))
}

// StopBoard stops both AWGs of this generator's board synchronously
func (a AWG) StopBoard() error {
	return a.d.write(famControl, fmt.Sprintf("C AWG-%s STOP", a.board()))
}

// StartAllAWGs starts all four AWGs synchronously
func (d *SP1060) StartAllAWGs() error {
	return d.write(famControl, "C AWG-ALL START")
}

// StopAllAWGs stops all four AWGs synchronously
func (d *SP1060) StopAllAWGs() error {
	return d.write(famControl, "C AWG-ALL STOP")
}

// Running reads whether the AWG is playing
func (a AWG) Running() (bool, error) {
	return a.d.queryBool(fmt.Sprintf("C AWG-%s S?", a.gen))
}

// CyclesDone reads the number of completed playback cycles
func (a AWG) CyclesDone() (int, error) {
	return a.d.queryInt(fmt.Sprintf("C AWG-%s CD?", a.gen))
}

// CyclePeriod reads the duration of one playback cycle in seconds
func (a AWG) CyclePeriod() (float64, error) {
	return a.d.queryFloat(fmt.Sprintf("C AWG-%s DP?", a.gen))
}

// Available reads whether the selected channel is free of other generators
func (a AWG) Available() (bool, error) {
	return a.d.queryBool(fmt.Sprintf("C AWG-%s AVA?", a.gen))
}

// SetChannel selects the output channel; bounds depend on the board
func (a AWG) SetChannel(ch int) error {
	lo, hi := a.channelRange()
	if ch < lo || ch > hi {
		return fmt.Errorf("AWG-%s drives channels %d-%d, got %d", a.gen, lo, hi, ch)
	}
	return a.write("CH %d", ch)
}

// Channel reads the selected output channel
func (a AWG) Channel() (int, error) {
	return a.d.queryInt(fmt.Sprintf("C AWG-%s CH?", a.gen))
}

// SetMemorySize sets the number of points played from the AWG memory
func (a AWG) SetMemorySize(n int) error {
	if !memSizeRange.Check(float64(n)) {
		return memSizeRange.Error("memory size", float64(n))
	}
	return a.write("MS %d", n)
}

// MemorySize reads the number of points played from the AWG memory
func (a AWG) MemorySize() (int, error) {
	return a.d.queryInt(fmt.Sprintf("C AWG-%s MS?", a.gen))
}

// SetCycles sets the number of playback cycles; 0 plays until stopped
func (a AWG) SetCycles(n int) error {
	if n < 0 {
		return fmt.Errorf("cycles must be nonnegative, got %d", n)
	}
	return a.write("CS %d", n)
}

// Cycles reads the number of playback cycles configured
func (a AWG) Cycles() (int, error) {
	return a.d.queryInt(fmt.Sprintf("C AWG-%s CS?", a.gen))
}

// SetTriggerMode configures the external trigger behavior
func (a AWG) SetTriggerMode(m TriggerMode) error {
	if m < TriggerDisabled || m > TriggerStep {
		return fmt.Errorf("trigger mode %d out of range [0, 3]", m)
	}
	return a.write("TM %d", int(m))
}

// TriggerMode reads the external trigger behavior
func (a AWG) TriggerMode() (TriggerMode, error) {
	i, err := a.d.queryInt(fmt.Sprintf("C AWG-%s TM?", a.gen))
	return TriggerMode(i), err
}

// SetAutoStart configures the AWG to restart playback after a reload
func (a AWG) SetAutoStart(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return a.write("AS %d", v)
}

// AutoStart reads the auto-start flag
func (a AWG) AutoStart() (bool, error) {
	return a.d.queryBool(fmt.Sprintf("C AWG-%s AS?", a.gen))
}

// SetReload configures reloading of the AWG memory from the wave memory
// after each playback cycle; needed for adaptive 2D scans
func (a AWG) SetReload(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return a.write("RLD %d", v)
}

// Reload reads the reload flag
func (a AWG) Reload() (bool, error) {
	return a.d.queryBool(fmt.Sprintf("C AWG-%s RLD?", a.gen))
}

// SetApplyPolynomial configures whether the POLY coefficients are applied
// when the AWG memory is refreshed from the wave memory
func (a AWG) SetApplyPolynomial(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return a.write("AP %d", v)
}

// ApplyPolynomial reads the apply-polynomial flag
func (a AWG) ApplyPolynomial() (bool, error) {
	return a.d.queryBool(fmt.Sprintf("C AWG-%s AP?", a.gen))
}

// SetShiftVoltage updates the constant term of the polynomial directly,
// the fast path for shifting a waveform during an adaptive scan
func (a AWG) SetShiftVoltage(v float64) error {
	if !voltRange.Check(v) {
		return voltRange.Error("shift voltage", v)
	}
	return a.write("SHIV %f", v)
}

// ShiftVoltage reads the adaptive shift voltage
func (a AWG) ShiftVoltage() (float64, error) {
	return a.d.queryFloat(fmt.Sprintf("C AWG-%s SHIV?", a.gen))
}

// SetExclusive configures whether a running AWG blocks all non-AWG
// activity on its board's channels
func (a AWG) SetExclusive(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return a.d.write(famControl, fmt.Sprintf("C AWG-%s ONLY %d", a.board(), v))
}

// Exclusive reads whether the board is in AWG-only mode
func (a AWG) Exclusive() (bool, error) {
	return a.d.queryBool(fmt.Sprintf("C AWG-%s ONLY?", a.board()))
}

// SetClockPeriod sets the board's AWG clock period in microseconds.
// Both AWGs of a board share the period.
func (a AWG) SetClockPeriod(us int) error {
	if !clockRange.Check(float64(us)) {
		return clockRange.Error("clock period", float64(us))
	}
	return a.d.write(famControl, fmt.Sprintf("C AWG-%s CP %d", a.board(), us))
}

// ClockPeriod reads the board's AWG clock period in microseconds
func (a AWG) ClockPeriod() (int, error) {
	return a.d.queryInt(fmt.Sprintf("C AWG-%s CP?", a.board()))
}
