package proxy

import (
	"net"
	"time"

	"github.com/darksilkmaster/socks4/internal/dialer"
)

type Config struct {
	// NegotiationTimeout bounds the upstream dial and handshake for each
	// forwarded connection.
	NegotiationTimeout time.Duration

	KeepAlive net.KeepAliveConfig

	Dialer dialer.Dialer
}
