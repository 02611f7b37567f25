// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"crypto/x509"
	"net"
	"time"
)

// DefaultTimeout is the connect and per-I/O timeout used by every protocol.
const DefaultTimeout = 5 * time.Second

// DefaultDoHURL is the DNS-over-HTTPS JSON endpoint used by [*DNSHandler].
const DefaultDoHURL = "https://cloudflare-dns.com/dns-query"

// Config holds common configuration for mpclient operations.
//
// Pass this to constructor functions to pre-wire dependencies.
// All fields have sensible defaults set by [NewConfig].
type Config struct {
	// Dialer is used by [*ConnectFunc].
	//
	// Set by [NewConfig] to [*net.Dialer].
	Dialer Dialer

	// DoHURL is the DNS-over-HTTPS JSON endpoint.
	//
	// Set by [NewConfig] to [DefaultDoHURL].
	DoHURL string

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// RootCAs contains the roots used to verify server certificates.
	//
	// Set by [NewConfig] to nil, meaning the system roots.
	RootCAs *x509.CertPool

	// Timeout bounds each dial and each read or write.
	//
	// Set by [NewConfig] to [DefaultTimeout].
	Timeout time.Duration

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Dialer:        &net.Dialer{},
		DoHURL:        DefaultDoHURL,
		ErrClassifier: DefaultErrClassifier,
		RootCAs:       nil,
		Timeout:       DefaultTimeout,
		TimeNow:       time.Now,
	}
}
