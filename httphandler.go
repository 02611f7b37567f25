// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// HTTPHandler runs [*HTTPRequest] exchanges.
type HTTPHandler struct {
	// Config is the [*Config] to use.
	Config *Config

	// Logger is the [SLogger] to use.
	Logger SLogger
}

// NewHTTPHandler returns a new [*HTTPHandler].
func NewHTTPHandler(cfg *Config, logger SLogger) *HTTPHandler {
	return &HTTPHandler{Config: cfg, Logger: orDefaultSLogger(logger)}
}

// Run performs a GET of scheme://host:port/ over a dedicated connection.
//
// With TrustSelfSigned the certificate is not verified for this
// connection only. Certificate failures are reported distinctly from other
// handshake failures. The body streams line by line only when the status
// is 200 and SeeOnlyStatusCode is false.
func (h *HTTPHandler) Run(ctx context.Context, req *HTTPRequest, emit EmitFunc) {
	host, err := parseHost(req.Host)
	if err != nil {
		emitError(emit, err)
		return
	}
	port, err := parsePort(req.Port)
	if err != nil {
		emitError(emit, err)
		return
	}

	URL := &url.URL{Scheme: "http", Host: net.JoinHostPort(host, port), Path: "/"}
	if req.UseSSL {
		URL.Scheme = "https"
	}

	httpConn, err := h.connect(ctx, req, host, port, emit)
	if err != nil {
		if IsCertificateError(err) {
			emit("SSL Certificate Error: " + err.Error())
			return
		}
		emitError(emit, err)
		return
	}
	defer httpConn.Close()

	resp, err := httpConn.Get(ctx, URL.String(), nil)
	if err != nil {
		emitError(emit, err)
		return
	}
	defer resp.Body.Close()

	emit(fmt.Sprintf("HTTP Response Code: %d", resp.StatusCode))
	if req.SeeOnlyStatusCode {
		return
	}
	if resp.StatusCode != http.StatusOK {
		emit(fmt.Sprintf("HTTP Error: %d", resp.StatusCode))
		return
	}

	if err := readLines(resp.Body, func(line string) { emit(line) }); err != nil {
		emitError(emit, err)
	}
}

func (h *HTTPHandler) connect(ctx context.Context,
	req *HTTPRequest, host, port string, emit EmitFunc) (*HTTPConn, error) {
	connPipeline := newConnPipeline(h.Config, "tcp", host, port, h.Logger)
	if !req.UseSSL {
		return Compose2(connPipeline, NewHTTPConnFuncPlain(h.Config, h.Logger)).Call(ctx, Unit{})
	}

	if req.TrustSelfSigned {
		emit("Trusting any certificate for this connection")
	} else {
		emit("Verifying SSL certificate...")
	}
	tlsConfig := NewTLSConfig(h.Config, host, []string{"h2", "http/1.1"}, req.TrustSelfSigned)
	return Compose3(
		connPipeline,
		NewTLSHandshakeFunc(h.Config, tlsConfig, h.Logger),
		NewHTTPConnFuncTLS(h.Config, h.Logger),
	).Call(ctx, Unit{})
}
