// Package scpi provides primitives for working with devices that speak
// SCPI, the ASCII command convention shared by most bench instruments.
package scpi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/qtlab/instruments/comm"
)

const (
	timeout = 5 * time.Second

	// one TCP MTU; replies to control queries are far smaller
	replyBufSize = 1500
)

// SCPI encapsulates SCPI communication over a connection pool
type SCPI struct {
	Pool *comm.Pool

	// Handshaking indicates whether every Write carries an error query,
	// so the device confirms it accepted the input
	Handshaking bool

	// Terminators are the Rx/Tx termination bytes, both '\n' if zero
	Terminators [2]byte
}

func (s *SCPI) terminators() (byte, byte) {
	rx, tx := s.Terminators[0], s.Terminators[1]
	if rx == 0 {
		rx = '\n'
	}
	if tx == 0 {
		tx = '\n'
	}
	return rx, tx
}

func (s *SCPI) wrap(conn io.ReadWriter) (io.ReadWriter, error) {
	rx, tx := s.terminators()
	return comm.NewTimeout(comm.NewTerminator(conn, rx, tx), timeout)
}

// Write sends a command to the device.  If Handshaking is on, an error
// query is appended and the response checked.  Used for set operations.
func (s *SCPI) Write(cmds ...string) error {
	conn, err := s.Pool.Get()
	if err != nil {
		return err
	}
	defer func() { s.Pool.ReturnWithError(conn, err) }()
	wrap, err := s.wrap(conn)
	if err != nil {
		return err
	}
	if s.Handshaking {
		cmds = append([]string{"*CLS;"}, cmds...)
		cmds = append(cmds, ";:SYSTem:ERRor?")
	}
	_, err = io.WriteString(wrap, strings.Join(cmds, " "))
	if err != nil {
		return err
	}
	if s.Handshaking {
		buf := make([]byte, replyBufSize)
		n, rerr := wrap.Read(buf)
		if rerr != nil {
			err = rerr
			return err
		}
		str := string(buf[:n])
		if !strings.HasPrefix(str, "+0") {
			err = errors.New(str)
			return err
		}
	}
	return nil
}

// WriteRead is Write followed by a read of the reply.  Used for queries.
func (s *SCPI) WriteRead(cmds ...string) ([]byte, error) {
	var resp []byte
	conn, err := s.Pool.Get()
	if err != nil {
		return resp, err
	}
	defer func() { s.Pool.ReturnWithError(conn, err) }()
	wrap, err := s.wrap(conn)
	if err != nil {
		return resp, err
	}
	if s.Handshaking {
		cmds = append([]string{"*CLS;"}, cmds...)
		cmds = append(cmds, ";:SYSTem:ERRor?")
	}
	_, err = io.WriteString(wrap, strings.Join(cmds, " "))
	if err != nil {
		return resp, err
	}
	buf := make([]byte, replyBufSize)
	n, err := wrap.Read(buf)
	if err != nil {
		return resp, err
	}
	resp = buf[:n]
	if s.Handshaking {
		pieces := bytes.Split(resp, []byte{';'})
		errS := string(pieces[len(pieces)-1])
		if !strings.HasPrefix(errS, "+0") {
			err = errors.New(errS)
			return resp, err
		}
		return bytes.Join(pieces[:len(pieces)-1], []byte{}), nil
	}
	return resp, nil
}

// ReadString sends a command to the device, then reads the response as a
// string with any trailing CR/LF removed
func (s *SCPI) ReadString(cmds ...string) (string, error) {
	resp, err := s.WriteRead(cmds...)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimRight(resp, "\r\n")), nil
}

// ReadFloat sends a command to the device, then parses the response as a
// floating point value
func (s *SCPI) ReadFloat(cmds ...string) (float64, error) {
	resp, err := s.ReadString(cmds...)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(resp, 64)
}

// ReadInt sends a command to the device, then parses the response as an
// integer
func (s *SCPI) ReadInt(cmds ...string) (int, error) {
	resp, err := s.ReadString(cmds...)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(resp)
}

// ReadBool sends a command to the device, then parses the response as a
// boolean.  "0"/"1" and "OFF"/"ON" both parse.
func (s *SCPI) ReadBool(cmds ...string) (bool, error) {
	resp, err := s.ReadString(cmds...)
	if err != nil {
		return false, err
	}
	switch strings.ToUpper(resp) {
	case "ON":
		return true, nil
	case "OFF":
		return false, nil
	}
	return strconv.ParseBool(resp)
}

// Identification returns the *IDN? response
func (s *SCPI) Identification() (string, error) {
	return s.ReadString("*IDN?")
}

// WaitOperationComplete blocks until the device reports completion of all
// pending overlapped commands via *OPC?
func (s *SCPI) WaitOperationComplete() error {
	_, err := s.ReadString("*OPC?")
	return err
}

// Raw sends a command to the device and returns a response if it was a
// query, else an empty string
func (s *SCPI) Raw(str string) (string, error) {
	prev := s.Handshaking
	s.Handshaking = false
	defer func() { s.Handshaking = prev }()
	if strings.Contains(str, "?") {
		return s.ReadString(str)
	}
	return "", s.Write(str)
}

// PopError gets a single error from the queue on the device
func (s *SCPI) PopError() error {
	str, err := s.ReadString("SYSTem:ERRor?")
	if err != nil {
		return err
	}
	if strings.HasPrefix(str, "+0") || strings.HasPrefix(str, "0") {
		return nil
	}
	return errors.New(str)
}

// AllErrors drains the error queue on the device and returns the combined
// error, nil if the queue was empty
func (s *SCPI) AllErrors() error {
	var errs error
	for i := 0; ; i++ {
		err := s.PopError()
		if err == nil {
			break
		}
		errs = multierr.Append(errs, err)
		if i > 32 { // wedged device, don't spin forever
			errs = multierr.Append(errs, fmt.Errorf("device error queue did not drain"))
			break
		}
	}
	return errs
}
