package testutil

// Package testutil provides small loopback TCP servers shared by tests.

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"testing"
)

// StartEchoServer starts a loopback TCP server that echoes everything read
// on the first accepted connection until the peer closes it.
func StartEchoServer(t *testing.T, ctx context.Context) net.Listener {
	t.Helper()

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		_, _ = io.Copy(c, c)
	}()

	return ln
}

// StartSingleAcceptServer starts a loopback TCP listener that accepts one
// connection and hands it to handler. The returned wait func closes the
// listener and blocks until the handler has finished.
func StartSingleAcceptServer(t *testing.T, ctx context.Context, handler func(net.Conn)) (net.Listener, func()) {
	t.Helper()

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		handler(c)
	}()

	wait := func() {
		_ = ln.Close()
		wg.Wait()
	}

	return ln, wait
}

// AssertEcho writes msg to w and fails the test unless exactly msg comes
// back on r.
func AssertEcho(t *testing.T, w io.Writer, r io.Reader, msg []byte) {
	t.Helper()

	if _, err := w.Write(msg); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, len(msg))
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, msg) {
		t.Fatalf("expected %q got %q", string(msg), string(buf))
	}
}
