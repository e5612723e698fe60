package socks4

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// TargetAddr is the destination of a SOCKS4 request: either a literal
// socket address or a hostname left for the proxy to resolve (SOCKS4A).
// The two implementations are IPTarget and DomainTarget.
type TargetAddr interface {
	// String returns the target in host:port form.
	String() string

	isTargetAddr()
}

// IPTarget is a TargetAddr holding a resolved socket address.
type IPTarget struct {
	netip.AddrPort
}

func (IPTarget) isTargetAddr() {}

// DomainTarget is a TargetAddr holding an unresolved hostname. Encoding a
// DomainTarget produces a SOCKS4A request.
type DomainTarget struct {
	Host string
	Port uint16
}

func (DomainTarget) isTargetAddr() {}

func (t DomainTarget) String() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(int(t.Port)))
}

// ResolveAddr converts a host:port string into a TargetAddr. An IP literal
// becomes an IPTarget (4-in-6 mapped addresses are unmapped); anything else
// becomes a DomainTarget. No DNS lookup is performed.
func ResolveAddr(address string) (TargetAddr, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("target %q: %w", address, err)
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("target %q: invalid port: %w", address, err)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		return IPTarget{netip.AddrPortFrom(addr.Unmap(), uint16(port))}, nil
	}

	if host == "" {
		return nil, fmt.Errorf("target %q: missing host", address)
	}

	return DomainTarget{Host: host, Port: uint16(port)}, nil
}
