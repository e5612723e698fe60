package socks4

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/netip"
)

// Status is the result code carried in byte 1 of a SOCKS4 reply.
type Status byte

const (
	StatusGranted           Status = 90
	StatusRejected          Status = 91
	StatusIdentdUnreachable Status = 92
	StatusIdentdMismatch    Status = 93
)

// Replies carry version 0, not 4.
const replyVersion = 0

var (
	// ErrReplyVersion is returned when byte 0 of a reply is not zero.
	ErrReplyVersion = errors.New("socks4: invalid reply version")

	// ErrRequestRejected corresponds to status 91.
	ErrRequestRejected = errors.New("socks4: request rejected or failed")

	// ErrIdentdUnreachable corresponds to status 92: the proxy could not
	// connect to identd on the client.
	ErrIdentdUnreachable = errors.New("socks4: request rejected: proxy cannot reach client identd")

	// ErrIdentdMismatch corresponds to status 93: identd reported a user id
	// different from the one in the request.
	ErrIdentdMismatch = errors.New("socks4: request rejected: identd user id mismatch")

	// ErrReplyStatus is returned for any status byte outside 90..93.
	ErrReplyStatus = errors.New("socks4: invalid reply status")
)

// readReply reads one fixed 8-byte reply and returns the bound address the
// proxy reported. A short read is an error. Any status other than granted
// is returned as its error; the address fields of a failed reply are never
// exposed.
func readReply(r io.Reader) (netip.AddrPort, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return netip.AddrPort{}, fmt.Errorf("read reply: %w", err)
	}

	if buf[0] != replyVersion {
		return netip.AddrPort{}, fmt.Errorf("%w: %d", ErrReplyVersion, buf[0])
	}

	switch Status(buf[1]) {
	case StatusGranted:
	case StatusRejected:
		return netip.AddrPort{}, ErrRequestRejected
	case StatusIdentdUnreachable:
		return netip.AddrPort{}, ErrIdentdUnreachable
	case StatusIdentdMismatch:
		return netip.AddrPort{}, ErrIdentdMismatch
	default:
		return netip.AddrPort{}, fmt.Errorf("%w: %d", ErrReplyStatus, buf[1])
	}

	port := binary.BigEndian.Uint16(buf[2:4])
	addr := netip.AddrFrom4([4]byte(buf[4:8]))
	return netip.AddrPortFrom(addr, port), nil
}
