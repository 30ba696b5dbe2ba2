// Package util contains misc internal utilities.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// IntSliceToCSV converts a slice of ints to CSV formatted data.
// e.g., []int{1,2,3,4,5} => "1,2,3,4,5"
func IntSliceToCSV(is []int) string {
	s := make([]string, len(is))
	for i, v := range is {
		s[i] = strconv.Itoa(v)
	}
	return strings.Join(s, ",")
}

// FloatSliceToCSV converts a slice of floats to CSV formatted data using
// the given format verb, e.g. 'G' and precision
func FloatSliceToCSV(fs []float64, fmtByte byte, prec int) string {
	s := make([]string, len(fs))
	for i, v := range fs {
		s[i] = strconv.FormatFloat(v, fmtByte, prec, 64)
	}
	return strings.Join(s, ",")
}

// ParseFloatCSV parses comma separated floats, tolerating surrounding
// whitespace on each field
func ParseFloatCSV(s string) ([]float64, error) {
	pieces := strings.Split(strings.TrimSpace(s), ",")
	out := make([]float64, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Limiter is an inclusive range check on floats
type Limiter struct {
	Min, Max float64
}

// Check returns true if v is within the limiter's range
func (l Limiter) Check(v float64) bool {
	return v >= l.Min && v <= l.Max
}

// Error formats an out of range error naming the offending quantity
func (l Limiter) Error(label string, v float64) error {
	return fmt.Errorf("%s %g out of range [%g, %g]", label, v, l.Min, l.Max)
}

// Clamp returns v restricted to the limiter's range
func (l Limiter) Clamp(v float64) float64 {
	if v < l.Min {
		return l.Min
	}
	if v > l.Max {
		return l.Max
	}
	return v
}
