// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/safeconn"
	"github.com/miekg/dns"
)

// DNSExchangeLogContext holds the logging state of a single DNS exchange.
//
// It emits dnsExchangeStart and dnsExchangeDone around the exchange, plus
// dnsQuery and dnsResponse carrying the raw messages, for the UDP, stream,
// and HTTPS transports alike.
type DNSExchangeLogContext struct {
	// ErrClassifier classifies errors for structured logging.
	ErrClassifier ErrClassifier

	// LocalAddr is the local address of the connection.
	LocalAddr string

	// Logger is the SLogger to use.
	Logger SLogger

	// Protocol is the network protocol (e.g., "tcp", "udp").
	Protocol string

	// RemoteAddr is the remote address of the connection.
	RemoteAddr string

	// ServerProtocol is the DNS protocol (e.g., "udp", "tcp", "dot", "doh").
	ServerProtocol string

	// TimeNow is the function to get the current time.
	TimeNow func() time.Time

	deadline time.Time
	rawQuery []byte
	t0       time.Time
}

// NewDNSExchangeLogContext returns a [*DNSExchangeLogContext] for conn.
func NewDNSExchangeLogContext(conn net.Conn, serverProtocol string,
	errClassifier ErrClassifier, logger SLogger, timeNow func() time.Time) *DNSExchangeLogContext {
	return &DNSExchangeLogContext{
		ErrClassifier:  errClassifier,
		LocalAddr:      safeconn.LocalAddr(conn),
		Logger:         logger,
		Protocol:       safeconn.Network(conn),
		RemoteAddr:     safeconn.RemoteAddr(conn),
		ServerProtocol: serverProtocol,
		TimeNow:        timeNow,
	}
}

func (lc *DNSExchangeLogContext) endpoint(extra ...any) []any {
	return append([]any{
		slog.String("localAddr", lc.LocalAddr),
		slog.String("protocol", lc.Protocol),
		slog.String("remoteAddr", lc.RemoteAddr),
		slog.String("serverProtocol", lc.ServerProtocol),
	}, extra...)
}

// LogStart logs the start of the exchange of a query for name and qtype.
func (lc *DNSExchangeLogContext) LogStart(ctx context.Context, name string, qtype uint16) {
	lc.t0 = lc.TimeNow()
	lc.deadline, _ = ctx.Deadline()
	lc.Logger.Info("dnsExchangeStart", lc.endpoint(
		slog.Time("deadline", lc.deadline),
		slog.String("dnsQueryName", name),
		slog.String("dnsQueryType", dns.TypeToString[qtype]),
		slog.Time("t", lc.t0),
	)...)
}

// LogQuery logs the raw query and remembers it for [LogResponse].
func (lc *DNSExchangeLogContext) LogQuery(rawQuery []byte) {
	lc.rawQuery = rawQuery
	lc.Logger.Info("dnsQuery", lc.endpoint(
		slog.Any("dnsRawQuery", rawQuery),
		slog.Time("t", lc.TimeNow()),
	)...)
}

// LogResponse logs the raw response along with the raw query.
func (lc *DNSExchangeLogContext) LogResponse(rawResp []byte) {
	lc.Logger.Info("dnsResponse", lc.endpoint(
		slog.Any("dnsRawQuery", lc.rawQuery),
		slog.Any("dnsRawResponse", rawResp),
		slog.Time("t0", lc.t0),
		slog.Time("t", lc.TimeNow()),
	)...)
}

// LogDone logs the completion of the exchange.
func (lc *DNSExchangeLogContext) LogDone(err error) {
	lc.Logger.Info("dnsExchangeDone", lc.endpoint(
		slog.Time("deadline", lc.deadline),
		slog.Any("err", err),
		slog.String("errClass", lc.ErrClassifier.Classify(err)),
		slog.Time("t0", lc.t0),
		slog.Time("t", lc.TimeNow()),
	)...)
}
