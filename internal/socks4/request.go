package socks4

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Command selects the proxy operation requested.
type Command byte

const (
	CmdConnect Command = 1
	CmdBind    Command = 2
)

const requestVersion = 4

// socks4aMarker is the reserved non-routable address 0.0.0.1 placed in the
// IP field to tell a SOCKS4A-capable proxy that a hostname follows the
// user id.
var socks4aMarker = [4]byte{0, 0, 0, 1}

// ErrUnsupportedAddressFamily is returned when the target is an IPv6
// address; the SOCKS4 request format has no representation for it.
var ErrUnsupportedAddressFamily = errors.New("socks4: no IPv6 target support")

// Request is a single CONNECT or BIND request.
//
// UserID must not contain a NUL byte. This is not validated: a NUL is the
// field terminator on the wire, so an embedded one silently truncates the
// user id as far as the proxy is concerned.
type Request struct {
	Cmd    Command
	Target TargetAddr
	UserID string
}

// MarshalBinary encodes the request as
//
//	VN CD DSTPORT DSTIP USERID NUL [DSTDOMAIN NUL]
//
// with the domain suffix present only for DomainTarget, in which case the
// DSTIP field carries the SOCKS4A marker. An IPv6 IPTarget fails with
// ErrUnsupportedAddressFamily before anything is encoded.
func (r *Request) MarshalBinary() ([]byte, error) {
	switch t := r.Target.(type) {
	case IPTarget:
		addr := t.Addr().Unmap()
		if !addr.Is4() {
			return nil, fmt.Errorf("target %s: %w", t, ErrUnsupportedAddressFamily)
		}
		buf := make([]byte, 0, 9+len(r.UserID))
		buf = append(buf, requestVersion, byte(r.Cmd))
		buf = binary.BigEndian.AppendUint16(buf, t.Port())
		ip := addr.As4()
		buf = append(buf, ip[:]...)
		buf = append(buf, r.UserID...)
		buf = append(buf, 0)
		return buf, nil

	case DomainTarget:
		buf := make([]byte, 0, 10+len(r.UserID)+len(t.Host))
		buf = append(buf, requestVersion, byte(r.Cmd))
		buf = binary.BigEndian.AppendUint16(buf, t.Port)
		buf = append(buf, socks4aMarker[:]...)
		buf = append(buf, r.UserID...)
		buf = append(buf, 0)
		buf = append(buf, t.Host...)
		buf = append(buf, 0)
		return buf, nil

	default:
		return nil, fmt.Errorf("socks4: unknown target type %T", r.Target)
	}
}
