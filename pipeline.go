// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import "net"

// newConnPipeline returns the pipeline shared by every handler: it dials
// network at host:port, observes I/O, bounds each read and write by
// [Config.Timeout], and closes the connection when the context is done.
func newConnPipeline(cfg *Config, network, host, port string, logger SLogger) Func[Unit, net.Conn] {
	return Compose5(
		NewEndpointFunc(host, port),
		NewConnectFunc(cfg, network, logger),
		NewObserveConnFunc(cfg, logger),
		NewIOTimeoutFunc(cfg),
		NewCancelWatchFunc(cfg, logger),
	)
}
