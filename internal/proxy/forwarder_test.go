package proxy

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/darksilkmaster/socks4/internal/dialer"
	"github.com/darksilkmaster/socks4/internal/testutil"
)

func TestForwarderServe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoServer(t, ctx)
	defer echoLn.Close()

	cfg := Config{
		NegotiationTimeout: 2 * time.Second,
		KeepAlive:          net.KeepAliveConfig{Enable: true, Idle: 45 * time.Second, Interval: 45 * time.Second, Count: 3},
		Dialer:             dialer.NewDirectDialer(dialer.Config{DialTimeout: 2 * time.Second}),
	}

	ln, err := ListenTCP(ctx, "tcp", "127.0.0.1:0", net.KeepAliveConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	fwd := NewForwarder(ctx, cfg, echoLn.Addr().String(), true)

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- fwd.Serve(ln)
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	testutil.AssertEcho(t, conn, conn, []byte("through the forwarder"))
	_ = conn.Close()

	_ = ln.Close()
	if err := <-serveDone; err != nil {
		t.Fatal(err)
	}
}

func TestCopyBidirectionalGracefulClose(t *testing.T) {
	leftOuter, leftInner := net.Pipe()
	rightInner, rightOuter := net.Pipe()

	done := make(chan error, 1)
	go func() {
		done <- CopyBidirectional(context.Background(), leftInner, rightInner)
	}()

	go func() {
		_, _ = leftOuter.Write([]byte("bye"))
		_ = leftOuter.Close()
	}()

	buf := make([]byte, 3)
	if _, err := io.ReadFull(rightOuter, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "bye" {
		t.Fatalf("read %q, want %q", buf, "bye")
	}
	_ = rightOuter.Close()

	select {
	case err := <-done:
		// One side finishing cleanly tears down the other; that must not
		// surface as an error.
		if err != nil {
			t.Fatalf("graceful close returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("copy did not finish")
	}
}

func TestCopyBidirectionalContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	left1, left2 := net.Pipe()
	right1, right2 := net.Pipe()
	defer left1.Close()
	defer right2.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = CopyBidirectional(ctx, left2, right1)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("copy did not stop on context cancel")
	}
}
