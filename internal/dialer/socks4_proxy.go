package dialer

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/darksilkmaster/socks4/internal/socks4"
)

// SOCKS4ProxyDialer dials outbound TCP connections through a SOCKS4 or
// SOCKS4A proxy.
//
// In SOCKS4 mode hostnames are resolved locally to IPv4 before the request
// is sent, since the wire format only carries an address. In SOCKS4A mode
// hostnames are forwarded to the proxy unresolved.
type SOCKS4ProxyDialer struct {
	cfg       Config
	proxyAddr string
	userID    string
	socks4a   bool
	resolver  *net.Resolver
	direct    Dialer
}

// NewSOCKS4ProxyDialer constructs a SOCKS4 dialer for the proxy at
// proxyAddr. userID is the legacy identification field sent with every
// request; it may be empty.
func NewSOCKS4ProxyDialer(cfg Config, proxyAddr, userID string, socks4a bool) *SOCKS4ProxyDialer {
	return &SOCKS4ProxyDialer{
		cfg:       cfg,
		proxyAddr: proxyAddr,
		userID:    userID,
		socks4a:   socks4a,
		resolver:  net.DefaultResolver,
		direct:    NewDirectDialer(cfg),
	}
}

// DialContext establishes a TCP connection to address via the proxy.
//
// The CONNECT handshake is performed synchronously before returning. If
// NegotiationTimeout is set, a deadline is applied during the handshake and
// cleared before returning. The returned conn is a *socks4.Conn, whose
// ProxyAddr reports the proxy-side address of the proxied connection.
func (f *SOCKS4ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if !strings.HasPrefix(network, "tcp") {
		return nil, fmt.Errorf("socks4 proxy dial %s %s: unsupported network", network, address)
	}

	target, err := f.resolveTarget(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("socks4 proxy dial %s: %w", address, err)
	}

	c, err := f.dialProxy(ctx, network)
	if err != nil {
		return nil, err
	}

	sc, err := socks4.Connect(c, target, f.userID)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("socks4 proxy dial %s: %w", address, err)
	}

	if f.cfg.NegotiationTimeout > 0 {
		_ = sc.SetDeadline(time.Time{})
	}
	return sc, nil
}

// BindContext asks the proxy to open a listening endpoint for an inbound
// connection from address. Any handshake deadline is cleared before
// returning, so the listener's Accept blocks until the peer connects or the
// caller closes the listener.
func (f *SOCKS4ProxyDialer) BindContext(ctx context.Context, network, address string) (*socks4.Listener, error) {
	if !strings.HasPrefix(network, "tcp") {
		return nil, fmt.Errorf("socks4 proxy bind %s %s: unsupported network", network, address)
	}

	target, err := f.resolveTarget(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("socks4 proxy bind %s: %w", address, err)
	}

	c, err := f.dialProxy(ctx, network)
	if err != nil {
		return nil, err
	}

	l, err := socks4.BindOn(c, target, f.userID)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("socks4 proxy bind %s: %w", address, err)
	}

	if f.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Time{})
	}
	return l, nil
}

// dialProxy connects to the proxy and arms the negotiation deadline.
func (f *SOCKS4ProxyDialer) dialProxy(ctx context.Context, network string) (net.Conn, error) {
	c, err := f.direct.DialContext(ctx, network, f.proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("socks4 proxy: %w", err)
	}

	if f.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Now().Add(f.cfg.NegotiationTimeout))
	}
	return c, nil
}

func (f *SOCKS4ProxyDialer) resolveTarget(ctx context.Context, address string) (socks4.TargetAddr, error) {
	target, err := socks4.ResolveAddr(address)
	if err != nil {
		return nil, err
	}

	d, ok := target.(socks4.DomainTarget)
	if !ok || f.socks4a {
		return target, nil
	}

	// Plain SOCKS4 cannot carry a hostname; resolve to IPv4 here.
	ips, err := f.resolver.LookupNetIP(ctx, "ip4", d.Host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", d.Host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("resolve %s: no IPv4 addresses", d.Host)
	}

	return socks4.IPTarget{AddrPort: netip.AddrPortFrom(ips[0].Unmap(), d.Port)}, nil
}
