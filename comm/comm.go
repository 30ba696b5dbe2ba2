/*Package comm provides connection pooling and io wrappers for lab hardware.

Most devices in this repository are used through a Pool, which owns zero or
more connections to the remote and hands them out one at a time.  Connections
are created lazily and reclaimed after the pool sits idle for its timeout,
which plays nicely with hardware that dislikes long-lived or thrashed
connections.

A typical driver constructor looks like:

	maker := comm.BackingOffTCPConnMaker(addr, time.Second)
	pool := comm.NewPool(1, 10*time.Second, maker)
	return &Device{pool: pool}

and each operation takes a connection from the pool, wraps it with a
Terminator (and usually a Timeout), does its IO, and returns it with
ReturnWithError.
*/
package comm

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

// CreationFunc returns a new "connection" to something.  Use a closure to
// capture the address and options needed.
type CreationFunc func() (io.ReadWriteCloser, error)

// BackingOffTCPConnMaker returns a CreationFunc which dials addr over TCP,
// retrying with exponential backoff.  Connection refusal is not retried,
// since backoff will not fix a service that is not listening.
func BackingOffTCPConnMaker(addr string, timeout time.Duration) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		var conn net.Conn
		op := func() error {
			var err error
			conn, err = net.DialTimeout("tcp", addr, timeout)
			if err != nil {
				if isRefused(err) {
					return backoff.Permanent(err)
				}
				return err
			}
			return nil
		}
		err := backoff.Retry(op, &backoff.ExponentialBackOff{
			InitialInterval:     25 * time.Millisecond,
			RandomizationFactor: 0,
			Multiplier:          2,
			MaxInterval:         time.Second,
			MaxElapsedTime:      3 * time.Second,
			Clock:               backoff.SystemClock})
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// SerialConnMaker returns a CreationFunc which opens the serial port
// described by cfg.
func SerialConnMaker(cfg *serial.Config) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		return serial.OpenPort(cfg)
	}
}

func isRefused(err error) bool {
	if oe, ok := err.(*net.OpError); ok {
		return oe.Op == "dial" && !oe.Timeout()
	}
	return false
}

// Pool holds one or more connections to a device.  Connections are created
// on demand and freed after all of them have been returned and the idle
// timeout has elapsed.  It is safe for concurrent use.  Pools must be
// created with NewPool.
type Pool struct {
	maxSize int
	onLease int
	timeout time.Duration
	conns   chan io.ReadWriteCloser
	maker   CreationFunc

	reclaiming    bool
	cancelReclaim chan struct{}
	mu            sync.Mutex
}

// NewPool creates a new Pool holding up to maxSize connections, destroying
// them after the pool has been fully idle for timeout.
func NewPool(maxSize int, timeout time.Duration, maker CreationFunc) *Pool {
	return &Pool{
		maxSize: maxSize,
		timeout: timeout,
		conns:   make(chan io.ReadWriteCloser, maxSize),
		maker:   maker,
	}
}

// Get retrieves a connection from the pool, blocking until one is available
// if they are all given out.  The caller has exclusive use of the returned
// ReadWriter and must hand it back with Put, ReturnWithError, or Destroy.
// If the error is non-nil, the connection must not be returned to the pool.
func (p *Pool) Get() (io.ReadWriter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopReclaim()
	if len(p.conns) > 0 {
		ret := <-p.conns
		p.onLease++
		return ret, nil
	}
	if p.onLease == p.maxSize {
		// all given out; wait for one to come back without holding the lock
		p.mu.Unlock()
		ret := <-p.conns
		p.mu.Lock()
		p.onLease++
		return ret, nil
	}
	c, err := p.maker()
	if err == nil {
		p.onLease++
	}
	return c, err
}

// Put restores a connection to the pool.  It may be reused, or freed after
// the idle timeout.  Connections that have gone bad should be Destroy'd,
// not Put.
func (p *Pool) Put(rw io.ReadWriter) {
	rwc := rw.(io.ReadWriteCloser)
	p.conns <- rwc
	p.mu.Lock()
	p.onLease--
	if p.onLease == 0 {
		p.startReclaim()
	}
	p.mu.Unlock()
}

// Destroy closes a connection and removes it from the pool's accounting.
// Use instead of Put when the connection has gone bad.
func (p *Pool) Destroy(rw io.ReadWriter) {
	if c, ok := rw.(io.Closer); ok {
		c.Close()
	}
	p.mu.Lock()
	p.onLease--
	p.mu.Unlock()
}

// ReturnWithError puts rw back in the pool if err is nil, otherwise the
// connection is assumed spoiled and destroyed.  It is intended for use in a
// deferred closure wrapping a named error value.
func (p *Pool) ReturnWithError(rw io.ReadWriter, err error) {
	if rw == nil {
		return
	}
	if err != nil {
		p.Destroy(rw)
		return
	}
	p.Put(rw)
}

// Size returns the number of connections owned by the pool, held or leased.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns) + p.onLease
}

// Active returns the number of connections currently given out.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.onLease
}

// startReclaim arms the idle timer and spawns a goroutine that closes every
// pooled connection when it fires.  mu must be held by the caller.
func (p *Pool) startReclaim() {
	if p.reclaiming {
		return
	}
	p.reclaiming = true
	cancel := make(chan struct{})
	p.cancelReclaim = cancel
	timer := time.NewTimer(p.timeout)
	go func() {
		defer timer.Stop()
		select {
		case <-cancel:
			return
		case <-timer.C:
		}
		p.mu.Lock()
		if p.cancelReclaim != cancel {
			// a Get won the race between the timer firing and us
			// taking the lock; the pool is in use again
			p.mu.Unlock()
			return
		}
		for len(p.conns) > 0 {
			c := <-p.conns
			c.Close()
		}
		p.reclaiming = false
		p.cancelReclaim = nil
		p.mu.Unlock()
	}()
}

// stopReclaim cancels a pending idle reclaim so that a later idle period can
// arm a fresh one.  mu must be held by the caller.
func (p *Pool) stopReclaim() {
	if !p.reclaiming {
		return
	}
	close(p.cancelReclaim)
	p.cancelReclaim = nil
	p.reclaiming = false
}
