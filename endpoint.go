// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import "net"

// NewEndpointFunc returns a [Func] that always returns the "host:port" endpoint
// obtained by joining host and port with [net.JoinHostPort].
//
// The host may be a domain name or an IP address. Name resolution, if
// needed, happens inside the [Dialer] used by [ConnectFunc].
func NewEndpointFunc(host, port string) Func[Unit, string] {
	return ConstFunc(net.JoinHostPort(host, port))
}
