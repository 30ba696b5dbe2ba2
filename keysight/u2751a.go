// Package keysight provides remote control of Keysight (Agilent)
// modular instruments.  The U2751A is a 4x8 two-wire switch matrix,
// a USB device speaking SCPI over the USBTMC class protocol.
package keysight

import (
	"fmt"
	"io"
	"time"

	"github.com/qtlab/instruments/comm"
	"github.com/qtlab/instruments/scpi"
	"github.com/qtlab/instruments/usbtmc"
)

// U2751A factory-assigned USB IDs
const (
	U2751AVendorID  = 0x0957
	U2751AProductID = 0x3D18
)

// matrix extent
const (
	NumRows    = 4
	NumColumns = 8
)

// U2751A represents a U2751A switch matrix
type U2751A struct {
	scpi.SCPI

	// RelayDelay is slept after every relay flip to let the contacts
	// settle
	RelayDelay time.Duration
}

// NewU2751A creates a new U2751A instance over any transport
func NewU2751A(maker comm.CreationFunc, relayDelay time.Duration) *U2751A {
	pool := comm.NewPool(1, time.Minute, maker)
	return &U2751A{
		SCPI:       scpi.SCPI{Pool: pool},
		RelayDelay: relayDelay,
	}
}

// NewU2751AUSB creates a new U2751A instance over USBTMC using the
// factory USB IDs
func NewU2751AUSB(relayDelay time.Duration) *U2751A {
	maker := func() (io.ReadWriteCloser, error) {
		return usbtmc.NewDevice(U2751AVendorID, U2751AProductID)
	}
	return NewU2751A(maker, relayDelay)
}

// coord formats a (row, column) pair as the instrument's three digit
// channel number, e.g. (1,1) -> 101, (4,8) -> 408
func coord(row, column int) (int, error) {
	if row < 1 || row > NumRows {
		return 0, fmt.Errorf("row %d out of range [1, %d]", row, NumRows)
	}
	if column < 1 || column > NumColumns {
		return 0, fmt.Errorf("column %d out of range [1, %d]", column, NumColumns)
	}
	return row*100 + column, nil
}

func (m *U2751A) settle() {
	if m.RelayDelay > 0 {
		time.Sleep(m.RelayDelay)
	}
}

// CloseRelay closes the relay at (row, column), connecting the two wires
func (m *U2751A) CloseRelay(row, column int) error {
	ch, err := coord(row, column)
	if err != nil {
		return err
	}
	err = m.Write(fmt.Sprintf("ROUTe:CLOSe (@%d)", ch))
	if err == nil {
		m.settle()
	}
	return err
}

// OpenRelay opens the relay at (row, column), breaking the connection
func (m *U2751A) OpenRelay(row, column int) error {
	ch, err := coord(row, column)
	if err != nil {
		return err
	}
	err = m.Write(fmt.Sprintf("ROUTe:OPEN (@%d)", ch))
	if err == nil {
		m.settle()
	}
	return err
}

// IsOpen reports whether the relay at (row, column) is open
func (m *U2751A) IsOpen(row, column int) (bool, error) {
	ch, err := coord(row, column)
	if err != nil {
		return false, err
	}
	return m.ReadBool(fmt.Sprintf("ROUTe:OPEN? (@%d)", ch))
}

// Cycles returns the lifetime flip count of the relay at (row, column)
func (m *U2751A) Cycles(row, column int) (int, error) {
	ch, err := coord(row, column)
	if err != nil {
		return 0, err
	}
	return m.ReadInt(fmt.Sprintf("DIAG:REL:CYCL? (@%d)", ch))
}

// OpenAll opens every closed relay in the matrix, settling after each
func (m *U2751A) OpenAll() error {
	for row := 1; row <= NumRows; row++ {
		for column := 1; column <= NumColumns; column++ {
			open, err := m.IsOpen(row, column)
			if err != nil {
				return err
			}
			if open {
				continue
			}
			if err := m.OpenRelay(row, column); err != nil {
				return err
			}
		}
	}
	return nil
}

// Connect routes exactly one (row, column) crosspoint: any other closed
// relay on the same row is opened first
func (m *U2751A) Connect(row, column int) error {
	if _, err := coord(row, column); err != nil {
		return err
	}
	for c := 1; c <= NumColumns; c++ {
		if c == column {
			continue
		}
		open, err := m.IsOpen(row, c)
		if err != nil {
			return err
		}
		if open {
			continue
		}
		if err := m.OpenRelay(row, c); err != nil {
			return err
		}
	}
	return m.CloseRelay(row, column)
}
