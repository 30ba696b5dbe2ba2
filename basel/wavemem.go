package basel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qtlab/instruments/util"
)

// BlockSize is the number of points returned by a block memory read
const BlockSize = 1000

// wavIndex maps a wave memory name (A-D) to the numeric form the SWG takes
func wavIndex(mem string) (int, error) {
	mem = strings.ToUpper(strings.TrimSpace(mem))
	i := strings.Index("ABCD", mem)
	if i < 0 || len(mem) != 1 {
		return 0, fmt.Errorf("no wave memory %q, want A/B/C/D", mem)
	}
	return i, nil
}

func wavName(i int) (string, error) {
	if i < 0 || i > 3 {
		return "", fmt.Errorf("wave memory index %d out of range [0, 3]", i)
	}
	return string([]byte{'A' + byte(i)}), nil
}

// WaveMemory addresses one of the wave memories WAV-A/B/C/D, or WAV-S,
// the scratch memory the SWG replays in saved mode.  Each of A-D feeds
// the AWG of the same letter.
type WaveMemory struct {
	d   *SP1060
	mem string
}

// WaveMemory returns a handle to memory "A", "B", "C", "D" or "S"
func (d *SP1060) WaveMemory(mem string) (WaveMemory, error) {
	mem = strings.ToUpper(strings.TrimSpace(mem))
	switch mem {
	case "A", "B", "C", "D", "S":
		return WaveMemory{d: d, mem: mem}, nil
	}
	return WaveMemory{}, fmt.Errorf("no wave memory %q, want A/B/C/D/S", mem)
}

// Size reads the number of points currently stored
func (w WaveMemory) Size() (int, error) {
	return w.d.queryInt(fmt.Sprintf("C WAV-%s MS?", w.mem))
}

// LinearizationChannel reads the channel recorded with the waveform, 0 if
// linearization was off when it was saved
func (w WaveMemory) LinearizationChannel() (int, error) {
	return w.d.queryInt(fmt.Sprintf("C WAV-%s LINCH?", w.mem))
}

// Busy reads whether the memory is mid-copy to its AWG memory
func (w WaveMemory) Busy() (bool, error) {
	return w.d.queryBool(fmt.Sprintf("C WAV-%s BUSY?", w.mem))
}

// Clear empties the memory.  Unused memories should be kept clear.
func (w WaveMemory) Clear() error {
	return w.d.write(famControl, fmt.Sprintf("C WAV-%s CLR", w.mem))
}

// Save commits the memory to the device's volatile store
func (w WaveMemory) Save() error {
	return w.d.write(famControl, fmt.Sprintf("C WAV-%s SAVE", w.mem))
}

// WriteToAWG copies the memory into the corresponding AWG memory,
// applying linearization and the polynomial if configured
func (w WaveMemory) WriteToAWG() error {
	return w.d.write(famControl, fmt.Sprintf("C WAV-%s WRITE", w.mem))
}

// SetPoint writes one voltage at an address
func (w WaveMemory) SetPoint(adr int, v float64) error {
	hex, err := EncodeVolt(v)
	if err != nil {
		return err
	}
	return w.d.write(famWAV, fmt.Sprintf("WAV-%s %X %s", w.mem, adr, hex))
}

// SetAll writes the same voltage to every address
func (w WaveMemory) SetAll(v float64) error {
	hex, err := EncodeVolt(v)
	if err != nil {
		return err
	}
	return w.d.write(famWAV, fmt.Sprintf("WAV-%s ALL %s", w.mem, hex))
}

// Upload writes a full table of voltages starting at address 0
func (w WaveMemory) Upload(points []float64) error {
	if !memSizeRange.Check(float64(len(points))) {
		return memSizeRange.Error("point count", float64(len(points)))
	}
	for i, v := range points {
		if err := w.SetPoint(i, v); err != nil {
			return err
		}
	}
	return nil
}

// Point reads the voltage at an address
func (w WaveMemory) Point(adr int) (float64, error) {
	resp, err := w.d.txrx(fmt.Sprintf("WAV-%s %X?", w.mem, adr))
	if err != nil {
		return 0, err
	}
	return DecodeVolt(resp)
}

// Block reads BlockSize voltages starting at an address
func (w WaveMemory) Block(start int) ([]float64, error) {
	resp, err := w.d.txrx(fmt.Sprintf("WAV-%s %X BLK?", w.mem, start))
	if err != nil {
		return nil, err
	}
	return decodeVoltList(resp)
}

// AWGMemory addresses the playback memory behind one of the AWGs.  It is
// normally filled from the matching wave memory, but supports direct
// point access for surgical edits.
type AWGMemory struct {
	d   *SP1060
	mem string
}

// AWGMemory returns a handle to memory "A", "B", "C" or "D"
func (d *SP1060) AWGMemory(mem string) (AWGMemory, error) {
	mem = strings.ToUpper(strings.TrimSpace(mem))
	switch mem {
	case "A", "B", "C", "D":
		return AWGMemory{d: d, mem: mem}, nil
	}
	return AWGMemory{}, fmt.Errorf("no AWG memory %q, want A/B/C/D", mem)
}

// SetPoint writes one voltage at an address
func (m AWGMemory) SetPoint(adr int, v float64) error {
	hex, err := EncodeVolt(v)
	if err != nil {
		return err
	}
	return m.d.write(famAWG, fmt.Sprintf("AWG-%s %X %s", m.mem, adr, hex))
}

// SetAll writes the same voltage to every address
func (m AWGMemory) SetAll(v float64) error {
	hex, err := EncodeVolt(v)
	if err != nil {
		return err
	}
	return m.d.write(famAWG, fmt.Sprintf("AWG-%s ALL %s", m.mem, hex))
}

// Point reads the voltage at an address
func (m AWGMemory) Point(adr int) (float64, error) {
	resp, err := m.d.txrx(fmt.Sprintf("AWG-%s %X?", m.mem, adr))
	if err != nil {
		return 0, err
	}
	return DecodeVolt(resp)
}

// Block reads BlockSize voltages starting at an address
func (m AWGMemory) Block(start int) ([]float64, error) {
	resp, err := m.d.txrx(fmt.Sprintf("AWG-%s %X BLK?", m.mem, start))
	if err != nil {
		return nil, err
	}
	return decodeVoltList(resp)
}

// decodeVoltList splits a semicolon separated list of hex DAC codes
func decodeVoltList(resp string) ([]float64, error) {
	pieces := strings.Split(strings.TrimSpace(resp), ";")
	out := make([]float64, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := DecodeVolt(p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SetPolynomial writes the coefficient list of POLY-A/B/C/D, constant
// term first.  The polynomial is applied to points copied from the wave
// memory when the AWG's apply-polynomial flag is set.
func (d *SP1060) SetPolynomial(mem string, coefs []float64) error {
	mem = strings.ToUpper(strings.TrimSpace(mem))
	if _, err := wavIndex(mem); err != nil {
		return fmt.Errorf("no polynomial %q, want A/B/C/D", mem)
	}
	if len(coefs) == 0 {
		return fmt.Errorf("polynomial %s needs at least one coefficient", mem)
	}
	cmd := fmt.Sprintf("POLY-%s %s", mem, joinFloats(coefs))
	return d.write(famPoly, cmd)
}

// Polynomial reads the coefficient list of POLY-A/B/C/D
func (d *SP1060) Polynomial(mem string) ([]float64, error) {
	mem = strings.ToUpper(strings.TrimSpace(mem))
	if _, err := wavIndex(mem); err != nil {
		return nil, fmt.Errorf("no polynomial %q, want A/B/C/D", mem)
	}
	resp, err := d.txrx(fmt.Sprintf("POLY-%s?", mem))
	if err != nil {
		return nil, err
	}
	return util.ParseFloatCSV(strings.ReplaceAll(strings.TrimSpace(resp), ";", ","))
}

func joinFloats(fs []float64) string {
	s := make([]string, len(fs))
	for i, f := range fs {
		s[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(s, " ")
}
