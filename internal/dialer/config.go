package dialer

import (
	"net"
	"time"
)

type Config struct {
	// DialTimeout bounds DNS lookup plus TCP connect for each outbound
	// connection.
	DialTimeout time.Duration

	// NegotiationTimeout bounds the proxy handshake after the transport is
	// connected. Zero means no deadline.
	NegotiationTimeout time.Duration

	// KeepAlive is applied to outbound TCP connections.
	KeepAlive net.KeepAliveConfig
}
