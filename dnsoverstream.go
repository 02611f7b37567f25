//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/bassosimone/dnsoverstream/blob/main/stream.go
//

package mpclient

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/miekg/dns"
)

// DNSOverStreamConn wraps a TCP or TLS connection for DNS exchanges using
// the 2-byte length prefixed framing of RFC 1035 Section 4.2.2.
//
// This type owns the underlying connection. The caller is responsible for
// calling Close() when done.
//
// Construct via [NewDNSOverTCPConnFunc] or [NewDNSOverTLSConnFunc].
type DNSOverStreamConn struct {
	// conn is the owned connection.
	conn net.Conn

	// ErrClassifier classifies errors for structured logging.
	ErrClassifier ErrClassifier

	// Logger is the SLogger to use.
	Logger SLogger

	// ServerProtocol is "tcp" or "dot".
	ServerProtocol string

	// TimeNow is the function to get the current time.
	TimeNow func() time.Time
}

// Close closes the underlying connection.
func (c *DNSOverStreamConn) Close() error {
	return c.conn.Close()
}

// Conn returns the underlying net.Conn for logging purposes.
func (c *DNSOverStreamConn) Conn() net.Conn {
	return c.conn
}

// Exchange writes the framed query and reads exactly one framed reply.
func (c *DNSOverStreamConn) Exchange(ctx context.Context, query *dns.Msg) (*dns.Msg, error) {
	lc := NewDNSExchangeLogContext(c.conn, c.ServerProtocol, c.ErrClassifier, c.Logger, c.TimeNow)
	lc.LogStart(ctx, query.Question[0].Name, query.Question[0].Qtype)
	resp, err := c.exchange(query, lc)
	lc.LogDone(err)
	return resp, err
}

func (c *DNSOverStreamConn) exchange(query *dns.Msg, lc *DNSExchangeLogContext) (*dns.Msg, error) {
	rawQuery, err := query.Pack()
	if err != nil {
		return nil, err
	}
	frame, err := newDNSStreamFrame(rawQuery)
	if err != nil {
		return nil, err
	}
	lc.LogQuery(rawQuery)
	if _, err := c.conn.Write(frame); err != nil {
		return nil, err
	}

	// Buffer to avoid issuing a read for the header and one for the body.
	rawResp, err := readDNSStreamFrame(bufio.NewReader(c.conn))
	if err != nil {
		return nil, err
	}
	lc.LogResponse(rawResp)
	return ParseDNSReply(query, rawResp)
}

// DNSOverStreamConnFunc wraps a connection into a [*DNSOverStreamConn].
//
// All fields are safe to modify after construction but before first use.
type DNSOverStreamConnFunc[T net.Conn] struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by the constructor from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by the constructor to the user-provided logger.
	Logger SLogger

	// ServerProtocol is "tcp" or "dot".
	//
	// Set by the constructor according to the connection type.
	ServerProtocol string

	// TimeNow is the function to get the current time.
	//
	// Set by the constructor from [Config.TimeNow].
	TimeNow func() time.Time
}

// NewDNSOverTCPConnFunc returns a [*DNSOverStreamConnFunc] for DNS over TCP.
func NewDNSOverTCPConnFunc(cfg *Config, logger SLogger) *DNSOverStreamConnFunc[net.Conn] {
	return &DNSOverStreamConnFunc[net.Conn]{
		ErrClassifier:  cfg.ErrClassifier,
		Logger:         logger,
		ServerProtocol: "tcp",
		TimeNow:        cfg.TimeNow,
	}
}

// NewDNSOverTLSConnFunc returns a [*DNSOverStreamConnFunc] for DNS over TLS.
func NewDNSOverTLSConnFunc(cfg *Config, logger SLogger) *DNSOverStreamConnFunc[TLSConn] {
	return &DNSOverStreamConnFunc[TLSConn]{
		ErrClassifier:  cfg.ErrClassifier,
		Logger:         logger,
		ServerProtocol: "dot",
		TimeNow:        cfg.TimeNow,
	}
}

var _ Func[net.Conn, *DNSOverStreamConn] = &DNSOverStreamConnFunc[net.Conn]{}
var _ Func[TLSConn, *DNSOverStreamConn] = &DNSOverStreamConnFunc[TLSConn]{}

// Call wraps conn into a [*DNSOverStreamConn].
func (op *DNSOverStreamConnFunc[T]) Call(ctx context.Context, conn T) (*DNSOverStreamConn, error) {
	return &DNSOverStreamConn{
		conn:           conn,
		ErrClassifier:  op.ErrClassifier,
		Logger:         op.Logger,
		ServerProtocol: op.ServerProtocol,
		TimeNow:        op.TimeNow,
	}, nil
}
