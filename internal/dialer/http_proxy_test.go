package dialer

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/darksilkmaster/socks4/internal/testutil"
)

func serveHTTPConnect(ctx context.Context, c net.Conn) error {
	br := bufio.NewReader(c)
	req, err := http.ReadRequest(br)
	if err != nil {
		return err
	}
	if req.Method != http.MethodConnect {
		_, _ = io.WriteString(c, "HTTP/1.1 405 Method Not Allowed\r\n\r\n")
		return nil
	}

	d := net.Dialer{}
	dst, err := d.DialContext(ctx, "tcp", req.Host)
	if err != nil {
		_, _ = io.WriteString(c, "HTTP/1.1 502 Bad Gateway\r\n\r\n")
		return nil
	}
	defer dst.Close()

	if _, err := io.WriteString(c, "HTTP/1.1 200 Connection established\r\n\r\n"); err != nil {
		return err
	}

	go func() {
		_, _ = io.Copy(dst, c)
		_ = dst.Close()
	}()
	_, _ = io.Copy(c, dst)

	return nil
}

func TestHTTPProxyDialerDialSuccess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoServer(t, ctx)
	defer echoLn.Close()

	upLn, waitUp := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
		if err := serveHTTPConnect(ctx, c); err != nil {
			t.Error(err)
		}
	})

	d, err := New(Config{DialTimeout: 2 * time.Second, NegotiationTimeout: 2 * time.Second},
		"http://"+upLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	conn, err := d.DialContext(ctx, "tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	testutil.AssertEcho(t, conn, conn, []byte("hello"))
	_ = conn.Close()

	waitUp()
}

func TestHTTPProxyDialerDialRefused(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	upLn, waitUp := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
		br := bufio.NewReader(c)
		if _, err := http.ReadRequest(br); err != nil {
			return
		}
		_, _ = io.WriteString(c, "HTTP/1.1 403 Forbidden\r\n\r\n")
	})

	d, err := New(Config{DialTimeout: 2 * time.Second}, "http://"+upLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := d.DialContext(ctx, "tcp", "127.0.0.1:1"); err == nil {
		t.Fatal("expected error")
	}

	waitUp()
}
