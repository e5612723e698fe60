package socks4

// Package socks4 implements the client side of the SOCKS4 and SOCKS4A proxy
// protocols.
//
// Connect performs the single-reply CONNECT handshake on an established
// connection to the proxy and returns a Conn that behaves like a direct
// connection to the target. Bind performs the two-reply BIND handshake used
// by protocols where the target connects back (FTP-style): it returns a
// Listener whose Addr reports the proxy-side accepting address and whose
// Accept completes once the proxy reports the inbound connection.
//
// SOCKS4 carries only IPv4 targets. Hostname targets are forwarded to the
// proxy unresolved using the SOCKS4A extension; proxies without SOCKS4A
// support will reject those requests, in which case the caller should
// resolve locally and retry with an IP target. There is no authentication
// beyond the legacy user id field, no UDP association, and no IPv6 target
// addressing.
//
// All handshake I/O is synchronous and blocking. Timeouts and cancellation
// are the transport's concern: set deadlines on the conn before calling in.
