// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/miekg/dns"
)

// dnsJSONMaxBodySize bounds the size of a DNS JSON API response body.
const dnsJSONMaxBodySize = 1 << 20

// DNSOverHTTPSResponse is the outcome of a DNS JSON API round trip.
type DNSOverHTTPSResponse struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Body is the response body, which should contain JSON.
	Body []byte
}

// DNSOverHTTPSConn wraps an [*HTTPConn] for exchanges with a DNS JSON API
// endpoint (e.g., https://cloudflare-dns.com/dns-query).
//
// This type owns the underlying HTTPConn. The caller is responsible for
// calling Close() when done.
//
// Construct via [*DNSOverHTTPSConnFunc].
type DNSOverHTTPSConn struct {
	// httpConn is the owned HTTPConn.
	httpConn *HTTPConn

	// url is the DNS JSON API endpoint URL.
	url string

	// ErrClassifier classifies errors for structured logging.
	ErrClassifier ErrClassifier

	// Logger is the SLogger to use.
	Logger SLogger

	// TimeNow is the function to get the current time.
	TimeNow func() time.Time
}

// Close closes the underlying HTTPConn.
func (c *DNSOverHTTPSConn) Close() error {
	return c.httpConn.Close()
}

// HTTPConn returns the underlying *HTTPConn for logging purposes.
func (c *DNSOverHTTPSConn) HTTPConn() *HTTPConn {
	return c.httpConn
}

// Exchange sends a GET request with name and type query parameters and the
// "accept: application/dns-json" header, then reads the whole body.
//
// A non-200 status is not an error here: the caller decides how to render it.
func (c *DNSOverHTTPSConn) Exchange(ctx context.Context, name string, qtype uint16) (*DNSOverHTTPSResponse, error) {
	lc := NewDNSExchangeLogContext(c.httpConn.Conn(), "doh", c.ErrClassifier, c.Logger, c.TimeNow)
	lc.LogStart(ctx, name, qtype)
	resp, err := c.exchange(ctx, name, qtype, lc)
	lc.LogDone(err)
	return resp, err
}

func (c *DNSOverHTTPSConn) exchange(ctx context.Context,
	name string, qtype uint16, lc *DNSExchangeLogContext) (*DNSOverHTTPSResponse, error) {
	URL, err := url.Parse(c.url)
	if err != nil {
		return nil, err
	}
	query := URL.Query()
	query.Set("name", name)
	query.Set("type", dns.TypeToString[qtype])
	URL.RawQuery = query.Encode()

	lc.LogQuery([]byte(URL.String()))
	httpResp, err := c.httpConn.Get(ctx, URL.String(), http.Header{
		"Accept": []string{"application/dns-json"},
	})
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, dnsJSONMaxBodySize))
	if err != nil {
		return nil, err
	}
	lc.LogResponse(body)
	return &DNSOverHTTPSResponse{StatusCode: httpResp.StatusCode, Body: body}, nil
}

// DNSOverHTTPSConnFunc wraps an *HTTPConn into a [*DNSOverHTTPSConn].
//
// All fields are safe to modify after construction but before first use.
type DNSOverHTTPSConnFunc struct {
	// URL is the DNS JSON API endpoint URL.
	//
	// Set by [NewDNSOverHTTPSConnFunc] to the user-provided value.
	URL string

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewDNSOverHTTPSConnFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewDNSOverHTTPSConnFunc] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time.
	//
	// Set by [NewDNSOverHTTPSConnFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

// NewDNSOverHTTPSConnFunc returns a new [*DNSOverHTTPSConnFunc] for the given URL.
func NewDNSOverHTTPSConnFunc(cfg *Config, URL string, logger SLogger) *DNSOverHTTPSConnFunc {
	return &DNSOverHTTPSConnFunc{
		URL:           URL,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
	}
}

var _ Func[*HTTPConn, *DNSOverHTTPSConn] = &DNSOverHTTPSConnFunc{}

// Call wraps the HTTPConn into a DNSOverHTTPSConn.
func (op *DNSOverHTTPSConnFunc) Call(ctx context.Context, httpConn *HTTPConn) (*DNSOverHTTPSConn, error) {
	return &DNSOverHTTPSConn{
		httpConn:      httpConn,
		url:           op.URL,
		ErrClassifier: op.ErrClassifier,
		Logger:        op.Logger,
		TimeNow:       op.TimeNow,
	}, nil
}
