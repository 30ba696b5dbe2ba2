package basel

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/qtlab/instruments/waves"
)

// interCmdDelay paces the programming sequence; the device needs a beat
// between control commands that touch the synthesis engine
const interCmdDelay = 20 * time.Millisecond

// WaveformConfig gathers the parameters of ProgramWaveform
type WaveformConfig struct {
	// Channel is the DAC channel the AWG will drive
	Channel int `json:"channel"`

	// Memory selects the wave memory and matching AWG, "A"-"D"
	Memory string `json:"memory"`

	Waveform  Waveform `json:"waveform"`
	Frequency float64  `json:"frequency"`
	Amplitude float64  `json:"amplitude"`

	// Linearize records the channel with the waveform for linearization
	Linearize bool `json:"linearize"`

	// Start begins playback once the memory is written
	Start bool `json:"start"`
}

// ProgramWaveform runs the full synthesis sequence: clear the wave memory,
// configure the SWG, render, save, copy to the AWG memory and optionally
// start playback.
func (d *SP1060) ProgramWaveform(cfg WaveformConfig) error {
	wm, err := d.WaveMemory(cfg.Memory)
	if err != nil {
		return err
	}
	awg, err := d.AWG(cfg.Memory)
	if err != nil {
		return err
	}
	swg := d.SWG()

	steps := []func() error{
		wm.Clear,
		func() error { return swg.SetSavedMode(false) },
		func() error { return swg.SetWaveform(cfg.Waveform) },
		func() error { return swg.SetFrequency(cfg.Frequency) },
		func() error { return swg.SetAmplitude(cfg.Amplitude) },
		func() error { return swg.SetWaveMemory(cfg.Memory) },
		func() error { return swg.SetWaveFunction(FuncCopy) },
		func() error {
			lin := 0
			if cfg.Linearize {
				lin = cfg.Channel
			}
			return swg.SetLinearization(lin)
		},
		func() error { return awg.SetChannel(cfg.Channel) },
		swg.Apply,
		wm.Save,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
		time.Sleep(interCmdDelay)
	}
	if err := wm.WriteToAWG(); err != nil {
		return err
	}
	// the copy into AWG memory takes longest; poll the busy flag out
	for i := 0; i < 50; i++ {
		busy, err := wm.Busy()
		if err != nil {
			return err
		}
		if !busy {
			break
		}
		time.Sleep(interCmdDelay)
	}
	if cfg.Start {
		return awg.Start()
	}
	return nil
}

// HostWaveformConfig gathers the parameters of UploadWaveform
type HostWaveformConfig struct {
	// Channel is the DAC channel the AWG will drive
	Channel int `json:"channel"`

	// Memory selects the wave memory and matching AWG, "A"-"D"
	Memory string `json:"memory"`

	Waveform Waveform `json:"waveform"`

	// Points is the number of samples in one period
	Points int `json:"points"`

	// Amplitude is volts zero-to-peak about Offset
	Amplitude float64 `json:"amplitude"`
	Offset    float64 `json:"offset"`

	// Phase is in degrees; sine only
	Phase float64 `json:"phase"`

	// DutyCycle is a percentage; pulse only
	DutyCycle float64 `json:"dutyCycle"`

	// Start begins playback once the memory is written
	Start bool `json:"start"`
}

// Render synthesizes one period of a waveform on the host, matching the
// shapes of the device's synthesis engine.  Noise amplitude is interpreted
// as the standard deviation.
func Render(w Waveform, points int, amp, offset, phase, duty float64) ([]float64, error) {
	switch w {
	case WaveformSine:
		return waves.Sine(points, amp, offset, phase*math.Pi/180), nil
	case WaveformTriangle:
		return waves.Triangle(points, amp, offset), nil
	case WaveformSawtooth:
		return waves.Sawtooth(points, amp, offset), nil
	case WaveformRamp:
		return waves.Ramp(points, offset-amp, offset+amp), nil
	case WaveformPulse:
		return waves.Pulse(points, amp, offset, duty/100), nil
	case WaveformNoiseFixed:
		return waves.Noise(points, amp, offset, rand.New(rand.NewSource(1))), nil
	case WaveformNoiseRandom:
		return waves.Noise(points, amp, offset, nil), nil
	case WaveformDC:
		return waves.DC(points, offset), nil
	}
	return nil, fmt.Errorf("no renderer for waveform %d", w)
}

// UploadWaveform renders cfg on the host and writes the table point-wise
// into the wave memory, then copies it to the AWG memory and optionally
// starts playback.  Unlike ProgramWaveform it leaves the device's synthesis
// engine untouched, so waveforms the engine cannot produce (arbitrary
// tables, seeded noise) can be played back.
func (d *SP1060) UploadWaveform(cfg HostWaveformConfig) error {
	pts, err := Render(cfg.Waveform, cfg.Points, cfg.Amplitude, cfg.Offset, cfg.Phase, cfg.DutyCycle)
	if err != nil {
		return err
	}
	wm, err := d.WaveMemory(cfg.Memory)
	if err != nil {
		return err
	}
	awg, err := d.AWG(cfg.Memory)
	if err != nil {
		return err
	}
	if err := wm.Clear(); err != nil {
		return err
	}
	if err := wm.Upload(pts); err != nil {
		return err
	}
	if err := awg.SetChannel(cfg.Channel); err != nil {
		return err
	}
	if err := wm.WriteToAWG(); err != nil {
		return err
	}
	for i := 0; i < 50; i++ {
		busy, err := wm.Busy()
		if err != nil {
			return err
		}
		if !busy {
			break
		}
		time.Sleep(interCmdDelay)
	}
	if cfg.Start {
		return awg.Start()
	}
	return nil
}

// Scan1D sweeps set linearly from start to stop over points steps, waiting
// delay at each point before calling measure, and returns the measurements
func Scan1D(set func(float64) error, start, stop float64, points int,
	delay time.Duration, measure func() (float64, error)) ([]float64, error) {
	values := scanValues(start, stop, points)
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if err := set(v); err != nil {
			return out, err
		}
		time.Sleep(delay)
		m, err := measure()
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Scan2D nests two linear sweeps.  The outer parameter steps once per row;
// the inner parameter sweeps within each row.  Each measure function is
// called at every grid point; the result is indexed [row][column][measure].
func Scan2D(setOuter func(float64) error, startOuter, stopOuter float64, pointsOuter int, delayOuter time.Duration,
	setInner func(float64) error, startInner, stopInner float64, pointsInner int, delayInner time.Duration,
	measure []func() (float64, error)) ([][][]float64, error) {
	outerVals := scanValues(startOuter, stopOuter, pointsOuter)
	innerVals := scanValues(startInner, stopInner, pointsInner)
	out := make([][][]float64, 0, len(outerVals))
	for _, ov := range outerVals {
		if err := setOuter(ov); err != nil {
			return out, err
		}
		time.Sleep(delayOuter)
		row := make([][]float64, 0, len(innerVals))
		for _, iv := range innerVals {
			if err := setInner(iv); err != nil {
				return out, err
			}
			time.Sleep(delayInner)
			point := make([]float64, 0, len(measure))
			for _, m := range measure {
				v, err := m()
				if err != nil {
					return out, err
				}
				point = append(point, v)
			}
			row = append(row, point)
		}
		out = append(out, row)
	}
	return out, nil
}

// scanValues returns points values from start to stop inclusive
func scanValues(start, stop float64, points int) []float64 {
	if points < 2 {
		return []float64{start}
	}
	inc := (stop - start) / float64(points-1)
	out := make([]float64, points)
	for i := 0; i < points-1; i++ {
		out[i] = start + float64(i)*inc
	}
	out[points-1] = stop
	return out
}
