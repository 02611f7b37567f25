// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Request is one of [*HTTPRequest], [*DNSRequest], [*NTPRequest], or
// [*CustomRequest]. The set of variants is closed.
type Request interface {
	isRequest()
}

// HTTPRequest requests a GET of scheme://Host:Port/.
type HTTPRequest struct {
	// Host is the IP address or domain name of the server.
	Host string

	// Port is the decimal port number, parsed when the exchange starts.
	Port string

	// UseSSL selects https instead of http.
	UseSSL bool

	// SeeOnlyStatusCode suppresses the response body.
	SeeOnlyStatusCode bool

	// TrustSelfSigned accepts any certificate for this connection only.
	TrustSelfSigned bool
}

// DNSRequest requests a single DNS lookup.
type DNSRequest struct {
	// Domain is the name to query, or the IP address for PTR queries.
	Domain string

	// QueryType is one of A, MX, CNAME, NS, PTR, ANY. Anything else means A.
	QueryType string

	// UseHTTPS selects the DNS-over-HTTPS JSON API. It takes precedence
	// over UseTLS.
	UseHTTPS bool

	// UseTLS selects DNS-over-TLS with the selected resolver.
	UseTLS bool

	// Resolver is the label of a [Resolver] in [Resolvers].
	Resolver string

	// UseRecursion sets the recursion desired flag.
	UseRecursion bool

	// UseTCP selects TCP instead of UDP for plain DNS.
	UseTCP bool
}

// NTPRequest requests the time from an NTP server.
type NTPRequest struct {
	// Host is the IP address or domain name of the server.
	Host string

	// Timezone is the IANA name of the zone used to render the time.
	Timezone string
}

// CustomRequest requests a raw TCP or UDP exchange.
type CustomRequest struct {
	// Host is the IP address or domain name of the target.
	Host string

	// Port is the decimal port number, parsed when the exchange starts.
	Port string

	// UseTCP selects TCP instead of UDP.
	UseTCP bool
}

func (*HTTPRequest) isRequest()   {}
func (*DNSRequest) isRequest()    {}
func (*NTPRequest) isRequest()    {}
func (*CustomRequest) isRequest() {}

var (
	// ErrEmptyHost indicates that the host is empty after trimming.
	ErrEmptyHost = errors.New("host must not be empty")

	// ErrEmptyDomain indicates that the domain is empty after trimming.
	ErrEmptyDomain = errors.New("domain must not be empty")
)

// parseHost trims host and rejects empty values.
func parseHost(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", ErrEmptyHost
	}
	return host, nil
}

// parsePort trims port and checks it is a decimal number in [1, 65535].
//
// It returns the canonical decimal string.
func parsePort(port string) (string, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(port), 10, 16)
	if err != nil || value == 0 {
		return "", fmt.Errorf("invalid port: %q", port)
	}
	return strconv.FormatUint(value, 10), nil
}
