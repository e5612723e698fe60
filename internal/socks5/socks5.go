package socks5

// Package socks5 is the client side of the SOCKS5 handshake, used for
// socks5:// upstreams.
//
// It wraps the low-level protocol types in github.com/txthinking/socks5 so
// negotiation and CONNECT parsing/writing live in one place next to the
// SOCKS4 core, rather than being spread through the dialer. It is not a
// general SOCKS5 implementation; it covers exactly what an upstream CONNECT
// needs.

import (
	"fmt"
	"net"

	txsocks5 "github.com/txthinking/socks5"
)

// Auth configures optional username/password authentication.
type Auth struct {
	Username string
	Password string
}

// ClientDial negotiates with a SOCKS5 proxy on an established connection
// and issues a CONNECT for address. On return the conn carries the proxied
// byte stream.
func ClientDial(conn net.Conn, auth Auth, address string) error {
	if err := negotiate(conn, auth); err != nil {
		return err
	}
	return connect(conn, address)
}

func negotiate(conn net.Conn, auth Auth) error {
	methods := []byte{txsocks5.MethodNone}
	if auth.Username != "" {
		methods = append(methods, txsocks5.MethodUsernamePassword)
	}

	if _, err := txsocks5.NewNegotiationRequest(methods).WriteTo(conn); err != nil {
		return fmt.Errorf("write negotiation: %w", err)
	}
	neg, err := txsocks5.NewNegotiationReplyFrom(conn)
	if err != nil {
		return fmt.Errorf("read negotiation: %w", err)
	}

	switch neg.Method {
	case txsocks5.MethodNone:
		return nil
	case txsocks5.MethodUsernamePassword:
		if auth.Username == "" {
			return fmt.Errorf("server requires username/password")
		}
		if _, err := txsocks5.NewUserPassNegotiationRequest([]byte(auth.Username), []byte(auth.Password)).WriteTo(conn); err != nil {
			return fmt.Errorf("write userpass: %w", err)
		}
		rep, err := txsocks5.NewUserPassNegotiationReplyFrom(conn)
		if err != nil {
			return fmt.Errorf("read userpass: %w", err)
		}
		if rep.Status != txsocks5.UserPassStatusSuccess {
			return fmt.Errorf("auth failed")
		}
		return nil
	default:
		return fmt.Errorf("unsupported negotiation method: %d", neg.Method)
	}
}

func connect(conn net.Conn, address string) error {
	atyp, dstAddr, dstPort, err := txsocks5.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("parse address: %w", err)
	}
	if atyp == txsocks5.ATYPDomain {
		dstAddr = dstAddr[1:]
	}

	if _, err := txsocks5.NewRequest(txsocks5.CmdConnect, atyp, dstAddr, dstPort).WriteTo(conn); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	rep, err := txsocks5.NewReplyFrom(conn)
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if rep.Rep != txsocks5.RepSuccess {
		return fmt.Errorf("connect failed: reply %d", rep.Rep)
	}
	return nil
}
