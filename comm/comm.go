/*Package comm provides connection pooling and io wrappers for communication
with lab hardware.

Most usages of this package boil down to:
 1. build a CreationFunc for your transport (TCP, serial, or USBTMC)
 2. wrap it in a Pool so connections are shared and reclaimed when idle
 3. in each method on your device type, Get a connection from the pool,
    wrap it with NewTerminator / NewTimeout as the protocol requires,
    and return it with ReturnWithError when done
*/
package comm

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

var (
	// ErrNotConnected is generated when an operation is attempted on a nil
	// connection.
	ErrNotConnected = errors.New("conn is nil, not connected to remote")

	// ErrTerminatorNotFound is generated when the termination byte is not
	// found in a response
	ErrTerminatorNotFound = errors.New("termination byte not found")
)

// CreationFunc is a function which returns a new "connection" to something.
// a closure should be used to encapsulate the variables and functions needed.
type CreationFunc func() (io.ReadWriteCloser, error)

// TCPSetup opens a new TCP connection and sets a timeout on connect, read, and write
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}

// TCPConnMaker returns a CreationFunc which dials addr with the given timeout
func TCPConnMaker(addr string, timeout time.Duration) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		return TCPSetup(addr, timeout)
	}
}

// BackingOffTCPConnMaker returns a CreationFunc which dials addr with an
// exponential backoff.  Some devices do not tolerate being connection
// thrashed, and some network stacks drop the first SYN after a device
// reboots; the backoff papers over both.
func BackingOffTCPConnMaker(addr string, timeout time.Duration) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		var conn net.Conn
		wasTimeout := false
		op := func() error {
			var err error
			conn, err = TCPSetup(addr, timeout)
			if err != nil {
				errS := strings.ToLower(err.Error())
				if strings.Contains(errS, "refused") {
					return err
				}
				wasTimeout = true
				return nil
			}
			wasTimeout = false
			return nil
		}
		err := backoff.Retry(op, &backoff.ExponentialBackOff{
			InitialInterval:     25 * time.Millisecond,
			RandomizationFactor: 0.,
			Multiplier:          2.,
			MaxInterval:         1 * time.Second,
			MaxElapsedTime:      3 * time.Second,
			Clock:               backoff.SystemClock})
		if err == nil && !wasTimeout {
			return conn, nil
		}
		if wasTimeout {
			return nil, fmt.Errorf("connection timeout to %s", addr)
		}
		return nil, err
	}
}

// SerialConnMaker returns a CreationFunc which opens the port described by cfg
func SerialConnMaker(cfg *serial.Config) CreationFunc {
	return func() (io.ReadWriteCloser, error) {
		return serial.OpenPort(cfg)
	}
}

// Terminator wraps a ReadWriter, appending the Tx terminator to each write
// and consuming up to (and stripping) the Rx terminator on each read.
type Terminator struct {
	rw     io.ReadWriter
	rx, tx byte
}

// NewTerminator returns a Terminator wrapping rw with the given terminators
func NewTerminator(rw io.ReadWriter, rx, tx byte) *Terminator {
	return &Terminator{rw: rw, rx: rx, tx: tx}
}

// Write sends b with the Tx terminator appended
func (t *Terminator) Write(b []byte) (int, error) {
	if t.rw == nil {
		return 0, ErrNotConnected
	}
	n, err := t.rw.Write(append(b, t.tx))
	if n > 0 {
		// do not count the terminator against the caller's buffer
		n--
	}
	return n, err
}

// Read fills b up to the Rx terminator, which is stripped from the data
func (t *Terminator) Read(b []byte) (int, error) {
	if t.rw == nil {
		return 0, ErrNotConnected
	}
	one := make([]byte, 1)
	n := 0
	for n < len(b) {
		_, err := t.rw.Read(one)
		if err != nil {
			return n, err
		}
		if one[0] == t.rx {
			return n, nil
		}
		b[n] = one[0]
		n++
	}
	return n, ErrTerminatorNotFound
}

// Timeout wraps a ReadWriter, applying a deadline to each read and write
// when the underlying type supports deadlines (net.Conn does; serial ports
// configure their own timeout at open).  When deadlines are unsupported,
// Timeout is a passthrough.
type Timeout struct {
	rw io.ReadWriter
	d  time.Duration
}

// deadliner is the subset of net.Conn used to arm deadlines
type deadliner interface {
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

// NewTimeout returns a Timeout wrapping rw
func NewTimeout(rw io.ReadWriter, d time.Duration) (*Timeout, error) {
	if rw == nil {
		return nil, ErrNotConnected
	}
	return &Timeout{rw: rw, d: d}, nil
}

// Write arms the write deadline, then forwards to the underlying ReadWriter
func (t *Timeout) Write(b []byte) (int, error) {
	if d, ok := underlying(t.rw).(deadliner); ok {
		d.SetWriteDeadline(time.Now().Add(t.d))
	}
	return t.rw.Write(b)
}

// Read arms the read deadline, then forwards to the underlying ReadWriter
func (t *Timeout) Read(b []byte) (int, error) {
	if d, ok := underlying(t.rw).(deadliner); ok {
		d.SetReadDeadline(time.Now().Add(t.d))
	}
	return t.rw.Read(b)
}

// underlying unwraps Terminator so deadline probing sees the real connection
func underlying(rw io.ReadWriter) io.ReadWriter {
	if t, ok := rw.(*Terminator); ok {
		return t.rw
	}
	return rw
}
