package proxy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
)

// Forwarder accepts local connections and splices each one to a fixed
// target address dialed through the configured upstream.
type Forwarder struct {
	cfg     Config
	target  string
	verbose bool
	ctx     context.Context
}

func NewForwarder(ctx context.Context, cfg Config, target string, verbose bool) *Forwarder {
	return &Forwarder{cfg: cfg, target: target, verbose: verbose, ctx: ctx}
}

// Serve accepts on ln until it is closed or the forwarder's context is
// canceled. Shutdown by closing the listener returns nil.
//
// Accepted TCP connections get the configured keepalive applied, so ln does
// not need to be a KeepAliveListener.
func (f *Forwarder) Serve(ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if f.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go f.handle(c)
	}
}

func (f *Forwarder) handle(c net.Conn) {
	defer c.Close()

	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(f.cfg.KeepAlive)
	}

	dctx := f.ctx
	if f.cfg.NegotiationTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(f.ctx, f.cfg.NegotiationTimeout)
		defer cancel()
	}

	dst, err := f.cfg.Dialer.DialContext(dctx, "tcp", f.target)
	if err != nil {
		f.logf("forward %s -> %s: %v", c.RemoteAddr(), f.target, err)
		return
	}

	if err := CopyBidirectional(f.ctx, c, dst); err != nil {
		f.logf("forward %s -> %s: %v", c.RemoteAddr(), f.target, err)
	}
}

func (f *Forwarder) logf(format string, v ...any) {
	if f.verbose {
		log.Printf(format, v...)
	}
}
