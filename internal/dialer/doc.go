package dialer

// Package dialer provides the outbound dialing implementations used to
// reach a forwarding target.
//
// Dialers implement a small interface (DialContext) and are selected by
// upstream URL: direct connections, HTTP CONNECT proxies, SOCKS4/SOCKS4A
// proxies, or SOCKS5 proxies. The SOCKS4 dialers additionally implement
// Binder for the BIND flow, where the proxy accepts an inbound connection
// on the caller's behalf.
