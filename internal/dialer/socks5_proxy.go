package dialer

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/darksilkmaster/socks4/internal/socks5"
)

// SOCKS5ProxyDialer dials outbound TCP connections through a SOCKS5 proxy,
// optionally with username/password authentication.
type SOCKS5ProxyDialer struct {
	cfg       Config
	proxyAddr string
	auth      socks5.Auth
	direct    Dialer
}

// NewSOCKS5ProxyDialer constructs a SOCKS5 dialer for the proxy at
// proxyAddr.
func NewSOCKS5ProxyDialer(cfg Config, proxyAddr, username, password string) *SOCKS5ProxyDialer {
	return &SOCKS5ProxyDialer{
		cfg:       cfg,
		proxyAddr: proxyAddr,
		auth:      socks5.Auth{Username: username, Password: password},
		direct:    NewDirectDialer(cfg),
	}
}

// DialContext establishes a TCP connection to address via the proxy.
// Negotiation and CONNECT are performed synchronously before returning,
// under NegotiationTimeout if set.
func (f *SOCKS5ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if !strings.HasPrefix(network, "tcp") {
		return nil, fmt.Errorf("socks5 proxy dial %s %s: unsupported network", network, address)
	}

	c, err := f.direct.DialContext(ctx, network, f.proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy: %w", err)
	}

	if f.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Now().Add(f.cfg.NegotiationTimeout))
	}

	if err := socks5.ClientDial(c, f.auth, address); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("socks5 proxy dial %s: %w", address, err)
	}

	if f.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Time{})
	}
	return c, nil
}
