package comm_test

import (
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/jpsecher/labawg/comm"
)

// tcpEchoServer starts an echo server on an OS-assigned port and returns
// its address
func tcpEchoServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatal("could not listen:", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() { io.Copy(conn, conn) }()
		}
	}()
	return ln.Addr().String()
}

func TestPoolGivesOutUpToCapacity(t *testing.T) {
	addr := tcpEchoServer(t)
	pool := comm.NewPool(3, time.Second, comm.TCPConnMaker(addr, time.Second))
	for i := 0; i < 3; i++ {
		conn, err := pool.Get()
		if err != nil {
			t.Fatal("could not get connection:", err)
		}
		if conn == nil {
			t.Fatal("got nil connection without error")
		}
	}
	if pool.Active() != 3 {
		t.Errorf("expected 3 active connections, got %d", pool.Active())
	}
}

func TestPoolReusesReturnedConns(t *testing.T) {
	addr := tcpEchoServer(t)
	pool := comm.NewPool(3, time.Second, comm.TCPConnMaker(addr, time.Second))
	for i := 0; i < 3; i++ {
		conn, err := pool.Get()
		if err != nil {
			t.Fatal("could not get connection:", err)
		}
		pool.Put(conn)
	}
	if pool.Size() != 1 {
		t.Errorf("expected pool to hold a single reused conn, got %d", pool.Size())
	}
}

func TestPoolBlocksWhenExhausted(t *testing.T) {
	addr := tcpEchoServer(t)
	pool := comm.NewPool(2, time.Second, comm.TCPConnMaker(addr, time.Second))
	for i := 0; i < 2; i++ {
		if _, err := pool.Get(); err != nil {
			t.Fatal("could not get connection:", err)
		}
	}
	newConn := make(chan io.ReadWriter, 1)
	go func() {
		rw, _ := pool.Get()
		newConn <- rw
	}()
	select {
	case <-newConn:
		t.Fatal("failed to prevent pool overflow")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPoolReclaimsIdleConnsAfterReuse(t *testing.T) {
	addr := tcpEchoServer(t)
	pool := comm.NewPool(1, 100*time.Millisecond, comm.TCPConnMaker(addr, time.Second))

	// first cycle arms the idle timer, the Get disarms it
	conn, err := pool.Get()
	if err != nil {
		t.Fatal("could not get connection:", err)
	}
	pool.Put(conn)
	conn, err = pool.Get()
	if err != nil {
		t.Fatal("could not get connection:", err)
	}

	// the second full return must re-arm reclamation
	pool.Put(conn)
	deadline := time.Now().Add(2 * time.Second)
	for pool.Size() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("idle conn never reclaimed, pool size %d", pool.Size())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPoolReturnWithErrorDiscardsBadConns(t *testing.T) {
	addr := tcpEchoServer(t)
	pool := comm.NewPool(1, time.Second, comm.TCPConnMaker(addr, time.Second))
	conn, err := pool.Get()
	if err != nil {
		t.Fatal("could not get connection:", err)
	}
	pool.ReturnWithError(conn, io.ErrUnexpectedEOF)
	if pool.Size() != 0 {
		t.Errorf("expected bad conn to be destroyed, pool size %d", pool.Size())
	}
}

func TestTerminatorRoundTrip(t *testing.T) {
	addr := tcpEchoServer(t)
	pool := comm.NewPool(1, time.Second, comm.TCPConnMaker(addr, time.Second))
	conn, err := pool.Get()
	if err != nil {
		t.Fatal("could not get connection:", err)
	}
	defer func() { pool.ReturnWithError(conn, err) }()
	wrap := comm.NewTerminator(conn, '\n', '\n')
	msg := "AWGControl:RMODe?"
	if _, err = wrap.Write([]byte(msg)); err != nil {
		t.Fatal("write failed:", err)
	}
	buf := make([]byte, 64)
	n, err := wrap.Read(buf)
	if err != nil {
		t.Fatal("read failed:", err)
	}
	got := string(buf[:n])
	if got != msg {
		t.Errorf("echo mismatch, got %q want %q", got, msg)
	}
	if strings.ContainsRune(got, '\n') {
		t.Error("terminator not stripped from response")
	}
}
