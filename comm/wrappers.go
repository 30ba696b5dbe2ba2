package comm

import (
	"io"
	"time"
)

// deadliner is the piece of net.Conn used to implement IO timeouts.
type deadliner interface {
	SetDeadline(time.Time) error
}

// Terminator wraps a ReadWriter, appending the Tx terminator on writes and
// consuming through the Rx terminator on reads, stripping it from the data
// handed to the caller.
type Terminator struct {
	rw io.ReadWriter

	// Rx and Tx are the termination bytes for receipt and transmission
	Rx, Tx byte
}

// NewTerminator wraps rw with terminator handling
func NewTerminator(rw io.ReadWriter, rx, tx byte) *Terminator {
	return &Terminator{rw: rw, Rx: rx, Tx: tx}
}

// Write sends b followed by the Tx terminator
func (t *Terminator) Write(b []byte) (int, error) {
	buf := make([]byte, len(b)+1)
	copy(buf, b)
	buf[len(b)] = t.Tx
	n, err := t.rw.Write(buf)
	if n == len(buf) {
		n-- // do not count the terminator
	}
	return n, err
}

// Read fills p up to the Rx terminator, which is consumed but not copied.
// A read that fills p without seeing the terminator returns len(p), nil;
// the next read continues the same message.
func (t *Terminator) Read(p []byte) (int, error) {
	var (
		one [1]byte
		n   int
	)
	for n < len(p) {
		m, err := t.rw.Read(one[:])
		if err != nil {
			return n, err
		}
		if m == 0 {
			continue
		}
		if one[0] == t.Rx {
			return n, nil
		}
		p[n] = one[0]
		n++
	}
	return n, nil
}

// SetDeadline passes the deadline to the wrapped connection, if it supports
// deadlines.  Serial ports do not; their timeouts are set at open.
func (t *Terminator) SetDeadline(d time.Time) error {
	if dl, ok := t.rw.(deadliner); ok {
		return dl.SetDeadline(d)
	}
	return nil
}

type timeoutRW struct {
	rw      io.ReadWriter
	dl      deadliner
	timeout time.Duration
}

// NewTimeout wraps rw such that every Read and Write carries a deadline of
// now+timeout.  If the underlying connection does not support deadlines
// (e.g., a serial port) rw is returned unchanged.
func NewTimeout(rw io.ReadWriter, timeout time.Duration) (io.ReadWriter, error) {
	dl, ok := rw.(deadliner)
	if !ok {
		return rw, nil
	}
	return &timeoutRW{rw: rw, dl: dl, timeout: timeout}, nil
}

func (t *timeoutRW) Read(p []byte) (int, error) {
	err := t.dl.SetDeadline(time.Now().Add(t.timeout))
	if err != nil {
		return 0, err
	}
	return t.rw.Read(p)
}

func (t *timeoutRW) Write(p []byte) (int, error) {
	err := t.dl.SetDeadline(time.Now().Add(t.timeout))
	if err != nil {
		return 0, err
	}
	return t.rw.Write(p)
}
