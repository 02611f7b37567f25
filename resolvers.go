// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

// Resolver is an entry of the public resolvers catalogue.
type Resolver struct {
	// Label is the display label (e.g., "Google DNS (8.8.8.8)").
	Label string

	// Addr is the IP literal of the resolver.
	Addr string

	// ServerName is the name in the resolver's DNS-over-TLS certificate.
	ServerName string
}

// DefaultResolver is used when a label is not in [Resolvers].
var DefaultResolver = Resolver{
	Label:      "Google DNS (8.8.8.8)",
	Addr:       "8.8.8.8",
	ServerName: "dns.google",
}

// Resolvers is the read-only catalogue of well-known public resolvers.
var Resolvers = []Resolver{
	DefaultResolver,
	{Label: "Cloudflare (1.1.1.1)", Addr: "1.1.1.1", ServerName: "one.one.one.one"},
	{Label: "OpenDNS (208.67.222.222)", Addr: "208.67.222.222", ServerName: "dns.opendns.com"},
	{Label: "Quad9 (9.9.9.9)", Addr: "9.9.9.9", ServerName: "dns.quad9.net"},
	{Label: "AdGuard DNS (94.140.14.14)", Addr: "94.140.14.14", ServerName: "dns.adguard-dns.com"},
}

// LookupResolver returns the [Resolver] with the given label or
// [DefaultResolver] when there is no such label.
func LookupResolver(label string) Resolver {
	for _, r := range Resolvers {
		if r.Label == label {
			return r
		}
	}
	return DefaultResolver
}
