// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"context"
	"net"
	"time"

	"github.com/miekg/dns"
)

// dnsMaxUDPMessageSize is the size of the buffer used to receive replies.
const dnsMaxUDPMessageSize = 65535

// DNSOverUDPConn wraps a UDP connection for DNS-over-UDP exchanges.
//
// This type owns the underlying connection. The caller is responsible for
// calling Close() when done.
//
// Construct via [*DNSOverUDPConnFunc].
type DNSOverUDPConn struct {
	// conn is the owned UDP connection.
	conn net.Conn

	// ErrClassifier classifies errors for structured logging.
	ErrClassifier ErrClassifier

	// Logger is the SLogger to use.
	Logger SLogger

	// TimeNow is the function to get the current time.
	TimeNow func() time.Time
}

// Close closes the underlying UDP connection.
func (c *DNSOverUDPConn) Close() error {
	return c.conn.Close()
}

// Conn returns the underlying net.Conn for logging purposes.
func (c *DNSOverUDPConn) Conn() net.Conn {
	return c.conn
}

// Exchange sends query as a single datagram and reads one reply.
//
// Read timeouts come from the pipeline (see [IOTimeoutFunc]) and
// cancellation from [CancelWatchFunc].
func (c *DNSOverUDPConn) Exchange(ctx context.Context, query *dns.Msg) (*dns.Msg, error) {
	lc := NewDNSExchangeLogContext(c.conn, "udp", c.ErrClassifier, c.Logger, c.TimeNow)
	lc.LogStart(ctx, query.Question[0].Name, query.Question[0].Qtype)
	resp, err := c.exchange(query, lc)
	lc.LogDone(err)
	return resp, err
}

func (c *DNSOverUDPConn) exchange(query *dns.Msg, lc *DNSExchangeLogContext) (*dns.Msg, error) {
	rawQuery, err := query.Pack()
	if err != nil {
		return nil, err
	}
	lc.LogQuery(rawQuery)
	if _, err := c.conn.Write(rawQuery); err != nil {
		return nil, err
	}

	buffer := make([]byte, dnsMaxUDPMessageSize)
	count, err := c.conn.Read(buffer)
	if err != nil {
		return nil, err
	}
	rawResp := buffer[:count]
	lc.LogResponse(rawResp)
	return ParseDNSReply(query, rawResp)
}

// DNSOverUDPConnFunc wraps a net.Conn into a [*DNSOverUDPConn].
//
// All fields are safe to modify after construction but before first use.
type DNSOverUDPConnFunc struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewDNSOverUDPConnFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewDNSOverUDPConnFunc] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time.
	//
	// Set by [NewDNSOverUDPConnFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

// NewDNSOverUDPConnFunc returns a new [*DNSOverUDPConnFunc] configured from cfg.
func NewDNSOverUDPConnFunc(cfg *Config, logger SLogger) *DNSOverUDPConnFunc {
	return &DNSOverUDPConnFunc{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
	}
}

var _ Func[net.Conn, *DNSOverUDPConn] = &DNSOverUDPConnFunc{}

// Call wraps the net.Conn into a DNSOverUDPConn.
func (op *DNSOverUDPConnFunc) Call(ctx context.Context, conn net.Conn) (*DNSOverUDPConn, error) {
	return &DNSOverUDPConn{
		conn:          conn,
		ErrClassifier: op.ErrClassifier,
		Logger:        op.Logger,
		TimeNow:       op.TimeNow,
	}, nil
}
