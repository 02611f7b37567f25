// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"context"
	"log/slog"
	"net"
	"net/url"
	"strings"

	"github.com/miekg/dns"
)

const (
	// dnsPort is the well-known port of plain DNS.
	dnsPort = "53"

	// dnsOverTLSPort is the well-known port of DNS-over-TLS.
	dnsOverTLSPort = "853"
)

// DNSHandler runs [*DNSRequest] exchanges.
type DNSHandler struct {
	// Config is the [*Config] to use.
	Config *Config

	// Logger is the [SLogger] to use.
	Logger SLogger
}

// NewDNSHandler returns a new [*DNSHandler].
func NewDNSHandler(cfg *Config, logger SLogger) *DNSHandler {
	return &DNSHandler{Config: cfg, Logger: orDefaultSLogger(logger)}
}

// Run performs a single lookup using DNS-over-HTTPS if UseHTTPS, else
// DNS-over-TLS if UseTLS, else plain DNS over UDP or TCP.
func (h *DNSHandler) Run(ctx context.Context, req *DNSRequest, emit EmitFunc) {
	domain := strings.TrimSpace(req.Domain)
	if domain == "" {
		emitError(emit, ErrEmptyDomain)
		return
	}
	qtype := DNSQueryType(req.QueryType)
	name, err := DNSQueryName(domain, qtype)
	if err != nil {
		emitError(emit, err)
		return
	}

	emit("Processing DNS query for " + domain + "...")
	h.Logger.Info(
		"dnsQueryOptions",
		slog.String("dnsQueryName", name),
		slog.String("dnsQueryType", DNSTypeLabel(qtype)),
		slog.Bool("dnsRecursionDesired", req.UseRecursion),
		slog.Bool("useHTTPS", req.UseHTTPS),
		slog.Bool("useTCP", req.UseTCP),
		slog.Bool("useTLS", req.UseTLS),
	)

	switch {
	case req.UseHTTPS:
		h.runHTTPS(ctx, name, qtype, emit)
	case req.UseTLS:
		h.runTLS(ctx, req, name, qtype, emit)
	default:
		h.runPlain(ctx, req, name, qtype, emit)
	}
}

func (h *DNSHandler) runHTTPS(ctx context.Context, name string, qtype uint16, emit EmitFunc) {
	emit("Using DNS over HTTPS with " + dohServiceLabel(h.Config.DoHURL))

	conn, err := h.dialHTTPS(ctx)
	if err != nil {
		emit("DNS over HTTPS Error: " + err.Error())
		return
	}
	defer conn.Close()

	resp, err := conn.Exchange(ctx, name, qtype)
	if err != nil {
		emit("DNS over HTTPS Error: " + err.Error())
		return
	}
	emitDNSJSONResponse(emit, resp)
}

func (h *DNSHandler) dialHTTPS(ctx context.Context) (*DNSOverHTTPSConn, error) {
	URL, err := url.Parse(h.Config.DoHURL)
	if err != nil {
		return nil, err
	}
	port := URL.Port()
	if port == "" {
		port = "443"
	}
	tlsConfig := NewTLSConfig(h.Config, URL.Hostname(), []string{"h2", "http/1.1"}, false)
	return Compose4(
		newConnPipeline(h.Config, "tcp", URL.Hostname(), port, h.Logger),
		NewTLSHandshakeFunc(h.Config, tlsConfig, h.Logger),
		NewHTTPConnFuncTLS(h.Config, h.Logger),
		NewDNSOverHTTPSConnFunc(h.Config, h.Config.DoHURL, h.Logger),
	).Call(ctx, Unit{})
}

// dohServiceLabel returns the name of the service behind URL.
func dohServiceLabel(URL string) string {
	if URL == DefaultDoHURL {
		return "Cloudflare"
	}
	if parsed, err := url.Parse(URL); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return URL
}

func (h *DNSHandler) runTLS(ctx context.Context, req *DNSRequest, name string, qtype uint16, emit EmitFunc) {
	resolver := LookupResolver(strings.TrimSpace(req.Resolver))
	emit("Using DNS over TLS with " + resolver.Label)

	tlsConfig := NewTLSConfig(h.Config, resolver.ServerName, []string{"dot"}, false)
	conn, err := Compose3(
		newConnPipeline(h.Config, "tcp", resolver.Addr, dnsOverTLSPort, h.Logger),
		NewTLSHandshakeFunc(h.Config, tlsConfig, h.Logger),
		NewDNSOverTLSConnFunc(h.Config, h.Logger),
	).Call(ctx, Unit{})
	if err != nil {
		emit("DNS over TLS Error: " + err.Error())
		return
	}
	defer conn.Close()
	emit("TLS connection established")

	resp, err := h.exchange(ctx, conn, name, qtype, req.UseRecursion, true)
	if err != nil {
		emit("DNS over TLS Error: " + err.Error())
		return
	}
	emitDNSReply(emit, resp)
}

func (h *DNSHandler) runPlain(ctx context.Context, req *DNSRequest, name string, qtype uint16, emit EmitFunc) {
	resolver := LookupResolver(strings.TrimSpace(req.Resolver))
	emit("Using DNS resolver: " + resolver.Addr)

	var (
		conn dnsExchanger
		err  error
	)
	if req.UseTCP {
		emit("Using TCP for DNS query")
		conn, err = Compose2(
			newConnPipeline(h.Config, "tcp", resolver.Addr, dnsPort, h.Logger),
			NewDNSOverTCPConnFunc(h.Config, h.Logger),
		).Call(ctx, Unit{})
	} else {
		conn, err = Compose2(
			newConnPipeline(h.Config, "udp", resolver.Addr, dnsPort, h.Logger),
			NewDNSOverUDPConnFunc(h.Config, h.Logger),
		).Call(ctx, Unit{})
	}
	if err != nil {
		emit("DNS Query Error: " + err.Error())
		return
	}
	defer conn.Close()

	resp, err := h.exchange(ctx, conn, name, qtype, req.UseRecursion, req.UseTCP)
	if err != nil {
		emit("DNS Query Error: " + err.Error())
		return
	}
	emitDNSReply(emit, resp)
}

// dnsExchanger is the common behavior of [*DNSOverUDPConn] and [*DNSOverStreamConn].
type dnsExchanger interface {
	Close() error
	Conn() net.Conn
	Exchange(ctx context.Context, query *dns.Msg) (*dns.Msg, error)
}

var (
	_ dnsExchanger = &DNSOverUDPConn{}
	_ dnsExchanger = &DNSOverStreamConn{}
)

func (h *DNSHandler) exchange(ctx context.Context,
	conn dnsExchanger, name string, qtype uint16, recursion, stream bool) (*dns.Msg, error) {
	query, err := NewDNSQueryMsg(name, qtype, recursion, stream)
	if err != nil {
		return nil, err
	}
	return conn.Exchange(ctx, query)
}
