package proxy

// Package proxy implements the local forwarding listener and shared
// connection plumbing: keepalive listeners and bidirectional copy.
//
// A Forwarder accepts local TCP connections and splices each one to a fixed
// target address dialed through the configured upstream dialer.
