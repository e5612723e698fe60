package socks4

import (
	"fmt"
	"net"
	"net/netip"
)

// Conn is a connection proxied over SOCKS4. After the handshake it is a
// plain byte stream: reads and writes go straight to the underlying
// transport with no further framing.
type Conn struct {
	net.Conn
	proxyAddr netip.AddrPort
}

// ProxyAddr returns the proxy-side address of the proxied connection: the
// address and port the proxy used to reach the target, not the target's own
// address. For a connection obtained from Listener.Accept it is the peer
// that connected in.
func (c *Conn) ProxyAddr() netip.AddrPort {
	return c.proxyAddr
}

// Connect performs a SOCKS4 CONNECT handshake for target on an established
// connection to a proxy. On success the returned Conn owns conn; on error
// conn is untouched and still owned by the caller.
//
// A DomainTarget is forwarded to the proxy using the SOCKS4A extension; if
// the proxy does not support SOCKS4A, resolve locally and pass an IPTarget
// instead.
func Connect(conn net.Conn, target TargetAddr, userID string) (*Conn, error) {
	return handshake(conn, CmdConnect, target, userID)
}

// Dial connects to the proxy at proxyAddr and performs a CONNECT handshake
// for target. The transport is closed on any failure.
func Dial(proxyAddr string, target TargetAddr, userID string) (*Conn, error) {
	conn, err := net.Dial("tcp", proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("dial proxy: %w", err)
	}

	c, err := Connect(conn, target, userID)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

func handshake(conn net.Conn, cmd Command, target TargetAddr, userID string) (*Conn, error) {
	req := Request{Cmd: cmd, Target: target, UserID: userID}
	pkt, err := req.MarshalBinary()
	if err != nil {
		return nil, err
	}

	if _, err := conn.Write(pkt); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	proxyAddr, err := readReply(conn)
	if err != nil {
		return nil, err
	}

	return &Conn{Conn: conn, proxyAddr: proxyAddr}, nil
}
