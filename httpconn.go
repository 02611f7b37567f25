//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/common/httpslog/httpslog.go
//

package mpclient

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/bassosimone/safeconn"
	"github.com/bassosimone/sud"
	"golang.org/x/net/http2"
)

// HTTPConn is an HTTP transport bound to a single, already established connection.
//
// Round trips emit httpRoundTripStart/httpRoundTripDone events and the
// response body emits httpBodyStreamStart/httpBodyStreamDone events.
//
// The caller is responsible for calling [HTTPConn.Close] when done.
//
// Construct using [NewHTTPConnFuncPlain] or [NewHTTPConnFuncTLS].
type HTTPConn struct {
	// conn is the underlying connection.
	conn net.Conn

	// txp is the HTTP transport.
	txp http.RoundTripper

	// closeIdleFunc closes idle connections in the transport.
	closeIdleFunc func()

	// ErrClassifier classifies errors for structured logging.
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	Logger SLogger

	// TimeNow is the function to get the current time.
	TimeNow func() time.Time
}

var _ http.RoundTripper = &HTTPConn{}

// Get sends a GET request for rawURL with the given extra headers.
//
// The response body must be closed by the caller.
func (hc *HTTPConn) Get(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return hc.RoundTrip(req)
}

// RoundTrip implements [http.RoundTripper].
func (hc *HTTPConn) RoundTrip(req *http.Request) (*http.Response, error) {
	endpoint := []any{
		slog.String("httpMethod", req.Method),
		slog.String("httpUrl", req.URL.String()),
		slog.Any("httpRequestHeaders", req.Header),
		slog.String("localAddr", safeconn.LocalAddr(hc.conn)),
		slog.String("protocol", safeconn.Network(hc.conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(hc.conn)),
	}

	t0 := hc.TimeNow()
	deadline, _ := req.Context().Deadline()
	hc.Logger.Info("httpRoundTripStart", append(endpoint, slog.Time("deadline", deadline), slog.Time("t", t0))...)

	resp, err := hc.txp.RoundTrip(req)

	var (
		statusCode int
		headers    http.Header
	)
	if resp != nil {
		statusCode = resp.StatusCode
		headers = resp.Header
	}
	hc.Logger.Info("httpRoundTripDone", append(endpoint,
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", hc.ErrClassifier.Classify(err)),
		slog.Any("httpResponseHeaders", headers),
		slog.Int("httpResponseStatusCode", statusCode),
		slog.Time("t0", t0),
		slog.Time("t", hc.TimeNow()),
	)...)

	if err != nil {
		return nil, err
	}
	resp.Body = newHTTPBodyWrapper(resp.Body, hc)
	return resp, nil
}

// Close cleans up the transport and closes the underlying connection.
func (hc *HTTPConn) Close() error {
	hc.closeIdleFunc()
	return hc.conn.Close()
}

// Conn returns the underlying [net.Conn].
func (hc *HTTPConn) Conn() net.Conn {
	return hc.conn
}

// HTTPConnFunc wraps a connection into an [*HTTPConn].
//
// Use [NewHTTPConnFuncPlain] after connecting for plain HTTP and
// [NewHTTPConnFuncTLS] after the TLS handshake for HTTPS. When the
// handshake negotiated "h2" we speak HTTP/2, otherwise HTTP/1.1 without
// keep-alives, since the connection serves a single request.
//
// The caller is responsible for closing the returned [*HTTPConn].
type HTTPConnFunc[T net.Conn] struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewHTTPConnFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewHTTPConnFunc] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time.
	//
	// Set by [NewHTTPConnFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

// NewHTTPConnFunc returns a new [*HTTPConnFunc] configured from cfg.
func NewHTTPConnFunc[T net.Conn](cfg *Config, logger SLogger) *HTTPConnFunc[T] {
	return &HTTPConnFunc[T]{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
	}
}

var _ Func[net.Conn, *HTTPConn] = &HTTPConnFunc[net.Conn]{}
var _ Func[TLSConn, *HTTPConn] = &HTTPConnFunc[TLSConn]{}

// Call implements [Func].
func (op *HTTPConnFunc[T]) Call(ctx context.Context, conn T) (*HTTPConn, error) {
	type connectionStater interface {
		ConnectionState() tls.ConnectionState
	}
	var alpn string
	if csp, ok := any(conn).(connectionStater); ok {
		alpn = csp.ConnectionState().NegotiatedProtocol
	}

	dialer := sud.NewSingleUseDialer(conn)

	hc := &HTTPConn{
		conn:          conn,
		ErrClassifier: op.ErrClassifier,
		Logger:        op.Logger,
		TimeNow:       op.TimeNow,
	}

	switch alpn {
	case "h2":
		txp := &http2.Transport{DialTLSContext: dialer.DialTLSContext}
		hc.txp, hc.closeIdleFunc = txp, txp.CloseIdleConnections

	default:
		txp := &http.Transport{
			DialContext:       dialer.DialContext,
			DialTLSContext:    dialer.DialContext,
			DisableKeepAlives: true,
		}
		hc.txp, hc.closeIdleFunc = txp, txp.CloseIdleConnections
	}
	return hc, nil
}

// NewHTTPConnFuncPlain returns a new [*HTTPConnFunc] for plain HTTP connections.
func NewHTTPConnFuncPlain(cfg *Config, logger SLogger) *HTTPConnFunc[net.Conn] {
	return NewHTTPConnFunc[net.Conn](cfg, logger)
}

// NewHTTPConnFuncTLS returns a new [*HTTPConnFunc] for HTTPS connections.
func NewHTTPConnFuncTLS(cfg *Config, logger SLogger) *HTTPConnFunc[TLSConn] {
	return NewHTTPConnFunc[TLSConn](cfg, logger)
}
