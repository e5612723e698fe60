package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/darksilkmaster/socks4/internal/socks4"
)

// Dialer mirrors the net.Dialer interface.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Binder is implemented by dialers that can ask the proxy for a remote
// listening endpoint (SOCKS4 BIND). address names the peer expected to
// connect in.
type Binder interface {
	BindContext(ctx context.Context, network, address string) (*socks4.Listener, error)
}

// New parses upstream and constructs the appropriate outbound Dialer.
//
// Supported schemes:
//   - direct://
//   - http://[user:pass@]host:port
//   - https://[user:pass@]host:port
//   - socks4://[user@]host:port
//   - socks4a://[user@]host:port
//   - socks5://[user:pass@]host:port
//
// For schemes that require a host, a default port is applied if the URL
// host is missing one. For socks4/socks4a the URL user is the legacy SOCKS4
// user id; a password is an error since the protocol has none.
func New(cfg Config, upstream string) (Dialer, error) {
	u, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)

	if u.Path != "" && u.Path != "/" {
		return nil, errors.New("invalid url: path should be empty")
	}

	switch u.Scheme {
	case "":
		return nil, errors.New("invalid url: missing scheme")
	case "direct":
		return NewDirectDialer(cfg), nil
	case "http", "https", "socks4", "socks4a", "socks5":
	default:
		return nil, fmt.Errorf("invalid url scheme: %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, errors.New("invalid url: missing host")
	}
	if u.Port() == "" {
		u.Host = net.JoinHostPort(host, defaultPortForScheme(u.Scheme))
	}

	var user, pass string
	var hasPass bool
	if u.User != nil {
		user = u.User.Username()
		pass, hasPass = u.User.Password()
	}

	switch u.Scheme {
	case "http", "https":
		return NewHTTPProxyDialer(cfg, u, user, pass)
	case "socks4", "socks4a":
		if hasPass {
			return nil, errors.New("invalid url: socks4 has no password, only a user id")
		}
		return NewSOCKS4ProxyDialer(cfg, u.Host, user, u.Scheme == "socks4a"), nil
	default: // socks5
		return NewSOCKS5ProxyDialer(cfg, u.Host, user, pass), nil
	}
}

func defaultPortForScheme(scheme string) string {
	switch scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	case "socks4", "socks4a", "socks5":
		return "1080"
	default:
		return ""
	}
}
