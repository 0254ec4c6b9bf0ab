package comm

import (
	"io"
	"sync"
	"time"
)

// Pool is a communication pool which holds one or more connections to a device
// that will be closed if they are not in use, and re-opened as needed.
// it is concurrent safe.  Pools must be created with NewPool.
type Pool struct {
	// can assume chan and timer are created by NewPool in all methods.
	maxSize int                     // maximum number of connections, == cap(conns)
	onLease int                     // number of connections given out, <= cap(conns)
	timeout time.Duration           // time after len(conns) == maxSize to free all connections
	conns   chan io.ReadWriteCloser // the circular buffer of connections
	timer   *time.Timer             // timer used to destroy connections after all are returned
	maker   CreationFunc

	reclaiming bool // whether startReclaim's goroutine is running
	mu         *sync.Mutex
}

// NewPool creates a new Pool holding up to maxSize connections made by maker,
// closed after they have all been idle for timeout
func NewPool(maxSize int, timeout time.Duration, maker CreationFunc) *Pool {
	p := &Pool{
		maxSize: maxSize,
		timeout: timeout,
		conns:   make(chan io.ReadWriteCloser, maxSize),
		timer:   time.NewTimer(timeout),
		maker:   maker,
		mu:      &sync.Mutex{},
	}
	p.timer.Stop() // nothing to close initially
	return p
}

// Get retrieves a communicator from the pool, blocking until one is
// available if all are in use.  It is guaranteed that there is no contention
// for the ReadWriter.  The consumer should not attempt to cast it to its
// concrete type and use it outside this interface.
//
// When done with the communicator, return it with Put, or discard it with
// Destroy if it has become no good (e.g., all calls error).
// ReturnWithError does the right thing in a deferred call.
//
// If the error from Get is not nil, you must not return the communicator
// to the pool, or you will cause a panic.
func (p *Pool) Get() (io.ReadWriter, error) {
	// stopping the timer can fail as documented at
	// https://golang.org/pkg/time/#Timer.Stop but a fresh connection will be
	// made with retry logic anyway, so that race is harmless here.
	p.timer.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	// short circuit: if a connection is available, immediately return it
	if len(p.conns) > 0 {
		ret := <-p.conns
		p.onLease++
		return ret, nil
	}
	// if they're all given out, wait for one to come back
	if p.onLease == p.maxSize {
		ret := <-p.conns
		p.onLease++
		return ret, nil
	}
	// no connection available and they aren't all out; make one.
	// only increment the lease count if we are giving out something
	// other than garbage
	c, err := p.maker()
	if err == nil {
		p.onLease++
	}
	return c, err
}

// Put restores a communicator to the pool.  It may be reused, or will be
// automatically freed after all connections are returned and the timeout
// has elapsed.  Junk communicators (ones that always error) should be
// Destroy()'d and not returned with Put.
func (p *Pool) Put(rw io.ReadWriter) {
	rwc := (rw).(io.ReadWriteCloser)
	p.conns <- rwc
	p.onLease--
	if len(p.conns) == p.maxSize {
		p.startReclaim()
	}
}

// Destroy immediately frees a communicator from the pool.  This should be used
// instead of Put if the communicator has gone bad.
func (p *Pool) Destroy(rw io.ReadWriter) {
	rwc := (rw).(io.ReadWriteCloser)
	rwc.Close()
	p.onLease--
}

// ReturnWithError Puts rw back in the pool if err is nil, else Destroys it.
// It is intended to be used in a deferred closure around the error variable
// of the surrounding function.
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

// Size returns the number of connections in the pool, or given out from it
func (p *Pool) Size() int {
	return len(p.conns) + p.onLease
}

// Active returns the number of connections owned by the pool that are
// currently given out
func (p *Pool) Active() int {
	return p.onLease
}

// Drain immediately closes all idle connections in the pool.  Leased
// connections are unaffected and may still be returned afterward.
func (p *Pool) Drain() {
	p.timer.Stop()
	for len(p.conns) > 0 {
		closer := <-p.conns
		closer.Close()
	}
}

// startReclaim arms the idle timer and ensures a single goroutine is
// waiting on it to close all pooled connections.  The timer is re-armed
// on every full return; a Get stops it, so without the re-arm a pool
// that was reused once would never reclaim again.
func (p *Pool) startReclaim() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timer.Reset(p.timeout)
	if p.reclaiming {
		return
	}
	p.reclaiming = true
	go func() {
		<-p.timer.C
		p.mu.Lock()
		p.reclaiming = false
		p.mu.Unlock()
		for len(p.conns) > 0 {
			closer := <-p.conns
			closer.Close()
		}
	}()
}
