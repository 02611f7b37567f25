// SPDX-License-Identifier: GPL-3.0-or-later

// Package mpclient implements a diagnostic multi-protocol network client.
//
// Each exchange performs exactly one outbound request over HTTP/HTTPS, DNS
// (UDP, TCP, DNS-over-TLS, DNS-over-HTTPS), NTP, or a raw TCP/UDP exchange and
// narrates the outcome as an ordered stream of [Line] values. All outcomes,
// including failures, are text: no error object crosses the handler boundary.
//
// # Requests and Dispatch
//
// A [Request] is one of [*HTTPRequest], [*DNSRequest], [*NTPRequest], or
// [*CustomRequest]. The [*Dispatcher] selects the matching handler, runs it on
// its own goroutine, and relays lines to a channel:
//
//	d := mpclient.NewDispatcher(mpclient.NewConfig(), logger)
//	for line := range d.Submit(ctx, &mpclient.NTPRequest{Host: "pool.ntp.org", Timezone: "UTC"}) {
//		fmt.Println(strings.Join(line, "\n"))
//	}
//
// The channel is closed when the exchange completes. A caller that stops
// reading must cancel ctx: this unblocks the producer and closes any socket
// still in flight.
//
// # Handlers
//
//   - [*HTTPHandler]: GET on scheme://host:port/ with optional per-connection
//     certificate trust override
//   - [*DNSHandler]: DNS over UDP, TCP, TLS (2-byte length framing), or the
//     DNS-over-HTTPS JSON API
//   - [*NTPHandler]: one NTPv3 client-mode exchange
//   - [*CustomHandler]: raw TCP or UDP exchange with a fixed test payload
//
// # Transport Primitives
//
// Handlers compose small [Func] primitives into pipelines with [Compose2]
// through [Compose7]:
//
//   - [ConnectFunc]: dials TCP or UDP endpoints, bounded by [Config.Timeout]
//   - [ObserveConnFunc]: logs I/O operations
//   - [IOTimeoutFunc]: bounds every read and write by [Config.Timeout]
//   - [CancelWatchFunc]: closes the connection when the context is done
//   - [TLSHandshakeFunc]: performs the TLS handshake
//   - [HTTPConnFunc]: wraps a connection with an HTTP transport
//   - [DNSOverUDPConnFunc], [DNSOverStreamConnFunc], [DNSOverHTTPSConnFunc]:
//     wrap connections for DNS exchanges
//   - [NTPConnFunc]: wraps a UDP connection for one NTP exchange
//
// Dial operations transfer ownership of the connection to the next stage on
// success and close it on error. Wrapper types own their connection and the
// caller must Close them.
//
// # Observability
//
// All primitives log through [SLogger], which [*slog.Logger] satisfies.
// Span events (*Start/*Done pairs) use [slog.LevelInfo]; per-I/O events
// use [slog.LevelDebug]. Completion events carry err and errClass, the
// latter computed by [Config.ErrClassifier]. The dispatcher attaches a
// UUIDv7 span ID (see [NewSpanID]) to every exchange.
package mpclient
