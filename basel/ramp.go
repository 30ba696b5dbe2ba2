package basel

import (
	"fmt"
	"strings"

	"github.com/qtlab/instruments/util"
)

// RampState is the run state of a ramp/step generator
type RampState int

// states reported by "C RMP-x S?"
const (
	RampIdle RampState = iota
	RampUp
	RampDown
	RampHolding
)

func (s RampState) String() string {
	switch s {
	case RampIdle:
		return "idle"
	case RampUp:
		return "ramping up"
	case RampDown:
		return "ramping down"
	case RampHolding:
		return "holding"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// RampShape is the trajectory of one ramp cycle
type RampShape int

// the two ramp shapes
const (
	Sawtooth RampShape = 0
	Triangle RampShape = 1
)

// rampTimeRange bounds the duration of one ramp cycle in seconds
var rampTimeRange = util.Limiter{Min: 0.05, Max: 1e6}

// Ramp addresses one of the four ramp/step generators RMP-A/B/C/D.
//
// When a generator is started or running, the selected channel belongs to
// it; direct voltage writes to that channel come back with a not-allowed
// error until the generator is stopped.
type Ramp struct {
	d   *SP1060
	gen string
}

// Ramp returns a handle to generator "A", "B", "C" or "D"
func (d *SP1060) Ramp(gen string) (Ramp, error) {
	gen = strings.ToUpper(strings.TrimSpace(gen))
	switch gen {
	case "A", "B", "C", "D":
		return Ramp{d: d, gen: gen}, nil
	}
	return Ramp{}, fmt.Errorf("no ramp generator %q, want A/B/C/D", gen)
}

func (r Ramp) write(cmd string, args ...interface{}) error {
	full := fmt.Sprintf("C RMP-%s %s", r.gen, fmt.Sprintf(cmd, args...))
	return r.d.write(famControl, full)
}

func (r Ramp) query(cmd string) (string, error) {
	return r.d.txrx(fmt.Sprintf("C RMP-%s %s", r.gen, cmd))
}

// Start begins ramping on the selected channel
func (r Ramp) Start() error {
	return r.write("START")
}

// Stop halts the generator; the channel holds the last voltage
func (r Ramp) Stop() error {
	return r.write("STOP")
}

// Hold pauses the generator at the current voltage
func (r Ramp) Hold() error {
	return r.write("HOLD")
}

// State reads the generator's run state
func (r Ramp) State() (RampState, error) {
	i, err := r.d.queryInt(fmt.Sprintf("C RMP-%s S?", r.gen))
	return RampState(i), err
}

// Available reads whether the selected channel is free of other generators
func (r Ramp) Available() (bool, error) {
	return r.d.queryBool(fmt.Sprintf("C RMP-%s AVA?", r.gen))
}

// SetChannel selects the output channel of the generator
func (r Ramp) SetChannel(ch int) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	return r.write("CH %d", ch)
}

// Channel reads the selected output channel
func (r Ramp) Channel() (int, error) {
	return r.d.queryInt(fmt.Sprintf("C RMP-%s CH?", r.gen))
}

// SetStartVoltage sets the voltage a cycle begins at
func (r Ramp) SetStartVoltage(v float64) error {
	if !voltRange.Check(v) {
		return voltRange.Error("start voltage", v)
	}
	return r.write("STAV %f", v)
}

// StartVoltage reads the voltage a cycle begins at
func (r Ramp) StartVoltage() (float64, error) {
	return r.d.queryFloat(fmt.Sprintf("C RMP-%s STAV?", r.gen))
}

// SetStopVoltage sets the stop/peak voltage of a cycle
func (r Ramp) SetStopVoltage(v float64) error {
	if !voltRange.Check(v) {
		return voltRange.Error("stop voltage", v)
	}
	return r.write("STOV %f", v)
}

// StopVoltage reads the stop/peak voltage of a cycle
func (r Ramp) StopVoltage() (float64, error) {
	return r.d.queryFloat(fmt.Sprintf("C RMP-%s STOV?", r.gen))
}

// SetRampTime sets the duration of one cycle in seconds
func (r Ramp) SetRampTime(seconds float64) error {
	if !rampTimeRange.Check(seconds) {
		return rampTimeRange.Error("ramp time", seconds)
	}
	return r.write("RT %f", seconds)
}

// RampTime reads the duration of one cycle in seconds
func (r Ramp) RampTime() (float64, error) {
	return r.d.queryFloat(fmt.Sprintf("C RMP-%s RT?", r.gen))
}

// SetShape selects sawtooth or triangle cycles
func (r Ramp) SetShape(s RampShape) error {
	return r.write("RS %d", int(s))
}

// Shape reads the cycle shape
func (r Ramp) Shape() (RampShape, error) {
	i, err := r.d.queryInt(fmt.Sprintf("C RMP-%s RS?", r.gen))
	return RampShape(i), err
}

// SetCycles sets the number of cycles to run; 0 runs until stopped
func (r Ramp) SetCycles(n int) error {
	if n < 0 {
		return fmt.Errorf("cycles must be nonnegative, got %d", n)
	}
	return r.write("CS %d", n)
}

// Cycles reads the number of cycles configured
func (r Ramp) Cycles() (int, error) {
	return r.d.queryInt(fmt.Sprintf("C RMP-%s CS?", r.gen))
}

// SetStepMode switches between ramp mode and step mode.  Step mode
// advances one step per trigger and exists for 2D scans.
func (r Ramp) SetStepMode(step bool) error {
	v := 0
	if step {
		v = 1
	}
	return r.write("STEP %d", v)
}

// StepMode reads whether the generator is in step mode
func (r Ramp) StepMode() (bool, error) {
	return r.d.queryBool(fmt.Sprintf("C RMP-%s STEP?", r.gen))
}

// CyclesDone reads the number of completed cycles
func (r Ramp) CyclesDone() (int, error) {
	return r.d.queryInt(fmt.Sprintf("C RMP-%s CD?", r.gen))
}

// StepsDone reads the number of completed steps within the current cycle
func (r Ramp) StepsDone() (int, error) {
	return r.d.queryInt(fmt.Sprintf("C RMP-%s SD?", r.gen))
}

// StepVoltage reads the internally computed voltage per step
func (r Ramp) StepVoltage() (float64, error) {
	return r.d.queryFloat(fmt.Sprintf("C RMP-%s SSV?", r.gen))
}

// StepsPerCycle reads the internally computed step count of one cycle
func (r Ramp) StepsPerCycle() (int, error) {
	return r.d.queryInt(fmt.Sprintf("C RMP-%s ST?", r.gen))
}

// RampConfig gathers the parameters of Program
type RampConfig struct {
	Channel      int       `json:"channel"`
	StartVoltage float64   `json:"startVoltage"`
	StopVoltage  float64   `json:"stopVoltage"`
	RampTime     float64   `json:"rampTime"`
	Shape        RampShape `json:"shape"`
	Cycles       int       `json:"cycles"`
	StepMode     bool      `json:"stepMode"`
}

// Program configures all ramp parameters in one shot and optionally starts
func (r Ramp) Program(cfg RampConfig, start bool) error {
	if err := r.SetChannel(cfg.Channel); err != nil {
		return err
	}
	if err := r.SetStartVoltage(cfg.StartVoltage); err != nil {
		return err
	}
	if err := r.SetStopVoltage(cfg.StopVoltage); err != nil {
		return err
	}
	if err := r.SetRampTime(cfg.RampTime); err != nil {
		return err
	}
	if err := r.SetShape(cfg.Shape); err != nil {
		return err
	}
	if err := r.SetCycles(cfg.Cycles); err != nil {
		return err
	}
	if err := r.SetStepMode(cfg.StepMode); err != nil {
		return err
	}
	if start {
		return r.Start()
	}
	return nil
}
