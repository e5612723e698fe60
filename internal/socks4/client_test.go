package socks4

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"testing"

	"golang.org/x/sync/errgroup"
)

// serveHandshake reads one request off conn, checks it against want, and
// writes reply followed by extra.
func serveHandshake(conn net.Conn, want, reply, extra []byte) error {
	got := make([]byte, len(want))
	if _, err := io.ReadFull(conn, got); err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("request = % x, want % x", got, want)
	}
	if _, err := conn.Write(reply); err != nil {
		return err
	}
	if len(extra) > 0 {
		if _, err := conn.Write(extra); err != nil {
			return err
		}
	}
	return nil
}

func TestConnect(t *testing.T) {
	t.Parallel()

	target := IPTarget{netip.MustParseAddrPort("198.51.100.2:443")}

	tests := []struct {
		name     string
		userID   string
		reply    []byte
		wantAddr string
		wantErr  error
	}{
		{
			name:     "granted",
			userID:   "alice",
			reply:    []byte{0, 90, 0x1f, 0x90, 10, 0, 0, 1},
			wantAddr: "10.0.0.1:8080",
		},
		{
			name:    "rejected",
			reply:   []byte{0, 91, 0, 0, 0, 0, 0, 0},
			wantErr: ErrRequestRejected,
		},
		{
			name:    "identd unreachable",
			reply:   []byte{0, 92, 0, 0, 0, 0, 0, 0},
			wantErr: ErrIdentdUnreachable,
		},
		{
			name:    "bad reply version",
			reply:   []byte{4, 90, 0, 0, 0, 0, 0, 0},
			wantErr: ErrReplyVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clientConn, serverConn := net.Pipe()
			defer clientConn.Close()
			defer serverConn.Close()

			wantReq, err := (&Request{Cmd: CmdConnect, Target: target, UserID: tt.userID}).MarshalBinary()
			if err != nil {
				t.Fatal(err)
			}

			var extra []byte
			if tt.wantErr == nil {
				extra = []byte("hi")
			}

			g := errgroup.Group{}
			g.Go(func() error {
				return serveHandshake(serverConn, wantReq, tt.reply, extra)
			})

			c, err := Connect(clientConn, target, tt.userID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if err := g.Wait(); err != nil {
					t.Fatal(err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}

			if got := c.ProxyAddr().String(); got != tt.wantAddr {
				t.Fatalf("proxy addr = %s, want %s", got, tt.wantAddr)
			}

			// After the handshake the conn is a plain byte stream.
			buf := make([]byte, len(extra))
			if _, err := io.ReadFull(c, buf); err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(buf, extra) {
				t.Fatalf("read %q, want %q", buf, extra)
			}

			if err := g.Wait(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestConnectIPv6TargetFailsBeforeIO(t *testing.T) {
	t.Parallel()

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	target := IPTarget{netip.MustParseAddrPort("[2001:db8::1]:80")}

	// net.Pipe writes block until read, so Connect returning at all proves
	// nothing was written.
	_, err := Connect(clientConn, target, "")
	if !errors.Is(err, ErrUnsupportedAddressFamily) {
		t.Fatalf("err = %v, want %v", err, ErrUnsupportedAddressFamily)
	}
}
