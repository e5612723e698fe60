package socks4

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// ErrListenerDone is returned by Listener methods after the listener has
// accepted its connection or been closed. A BIND accepts exactly once.
var ErrListenerDone = errors.New("socks4: listener already accepted or closed")

// Listener is a pending SOCKS4 BIND: the proxy has opened a listening
// socket and will report exactly one inbound connection, expected to come
// from the target named in the bind request.
type Listener struct {
	conn *Conn
}

// Bind connects to the proxy at proxyAddr and requests a listening endpoint
// for an inbound connection from target. The transport is closed on any
// failure.
func Bind(proxyAddr string, target TargetAddr, userID string) (*Listener, error) {
	conn, err := net.Dial("tcp", proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("dial proxy: %w", err)
	}

	l, err := BindOn(conn, target, userID)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return l, nil
}

// BindOn performs the first phase of a BIND handshake on an established
// connection to a proxy. On success the returned Listener owns conn; on
// error conn is untouched and still owned by the caller.
func BindOn(conn net.Conn, target TargetAddr, userID string) (*Listener, error) {
	c, err := handshake(conn, CmdBind, target, userID)
	if err != nil {
		return nil, err
	}
	return &Listener{conn: c}, nil
}

// Addr returns the externally reachable address of the proxy's listening
// socket. Proxies commonly report the unspecified address 0.0.0.0, meaning
// "the same address you used to reach me"; in that case the transport's
// peer address is substituted, keeping the reported port. Querying the peer
// address can fail if the transport has been closed.
func (l *Listener) Addr() (netip.AddrPort, error) {
	if l.conn == nil {
		return netip.AddrPort{}, ErrListenerDone
	}

	bound := l.conn.proxyAddr
	if !bound.Addr().IsUnspecified() {
		return bound, nil
	}

	peer, ok := l.conn.RemoteAddr().(*net.TCPAddr)
	if !ok || peer == nil {
		return netip.AddrPort{}, errors.New("socks4: proxy peer address unavailable")
	}
	addr, ok := netip.AddrFromSlice(peer.IP)
	if !ok {
		return netip.AddrPort{}, fmt.Errorf("socks4: invalid proxy peer address %v", peer.IP)
	}

	return netip.AddrPortFrom(addr.Unmap(), bound.Port()), nil
}

// Accept blocks until the proxy reports the inbound connection with a
// second reply, then converts the listener into a Conn carrying the proxied
// byte stream. The Conn's ProxyAddr is the connecting peer from the second
// reply, replacing the listening address from the first.
//
// Accept consumes the listener: it succeeds at most once, and on failure
// the transport is closed. Either way later calls return ErrListenerDone.
func (l *Listener) Accept() (*Conn, error) {
	if l.conn == nil {
		return nil, ErrListenerDone
	}

	c := l.conn
	l.conn = nil

	proxyAddr, err := readReply(c.Conn)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	c.proxyAddr = proxyAddr
	return c, nil
}

// Close abandons a bind that has not accepted yet. It is a no-op after
// Accept or a previous Close.
func (l *Listener) Close() error {
	if l.conn == nil {
		return nil
	}
	c := l.conn
	l.conn = nil
	return c.Close()
}
