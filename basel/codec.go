// Package basel provides remote control of Basel Precision Instruments
// LNHR DAC SP1060 low noise high resolution DACs.
package basel

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// codeScale converts between volts and 24-bit DAC codes,
// code = (V + 10) * codeScale
const codeScale = 838860.75

// maxCode is the largest 24-bit DAC code
const maxCode = 0xFFFFFF

// VoltToCode converts a voltage in the +/- 10V output span to a DAC code
func VoltToCode(v float64) (uint32, error) {
	if v < -10 || v > 10 {
		return 0, fmt.Errorf("voltage %g out of range [-10, 10]", v)
	}
	code := uint32((v + 10) * codeScale)
	if code > maxCode {
		code = maxCode
	}
	return code, nil
}

// CodeToVolt converts a DAC code to a voltage, rounded to the 1 uV the
// readback resolves
func CodeToVolt(code uint32) float64 {
	v := float64(code)/codeScale - 10
	return math.Round(v*1e6) / 1e6
}

// EncodeVolt formats a voltage as the uppercase hex the device consumes
func EncodeVolt(v float64) (string, error) {
	code, err := VoltToCode(v)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(strconv.FormatUint(uint64(code), 16)), nil
}

// DecodeVolt parses a hex DAC code reply into a voltage
func DecodeVolt(s string) (float64, error) {
	s = strings.TrimSpace(s)
	code, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed DAC code %q: %w", s, err)
	}
	if code > maxCode {
		return 0, fmt.Errorf("DAC code %X exceeds 24 bits", code)
	}
	return CodeToVolt(uint32(code)), nil
}
