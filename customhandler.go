// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"context"
	"net"
)

// CustomTestPayload is the payload sent by [*CustomHandler].
const CustomTestPayload = "TEST from MultiProtocolClient"

// customMaxDatagramSize bounds the size of the UDP reply.
const customMaxDatagramSize = 65535

// CustomHandler runs [*CustomRequest] exchanges.
type CustomHandler struct {
	// Config is the [*Config] to use.
	Config *Config

	// Logger is the [SLogger] to use.
	Logger SLogger
}

// NewCustomHandler returns a new [*CustomHandler].
func NewCustomHandler(cfg *Config, logger SLogger) *CustomHandler {
	return &CustomHandler{Config: cfg, Logger: orDefaultSLogger(logger)}
}

// Run sends [CustomTestPayload] to host:port over TCP or UDP and reports
// whatever comes back.
func (h *CustomHandler) Run(ctx context.Context, req *CustomRequest, emit EmitFunc) {
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

	if req.UseTCP {
		emit("Attempting TCP connection to " + net.JoinHostPort(host, port) + "...")
		h.runTCP(ctx, host, port, emit)
		return
	}
	emit("Attempting UDP connection to " + net.JoinHostPort(host, port) + "...")
	h.runUDP(ctx, host, port, emit)
}

func (h *CustomHandler) runTCP(ctx context.Context, host, port string, emit EmitFunc) {
	defer emit("Connection closed")

	conn, err := newConnPipeline(h.Config, "tcp", host, port, h.Logger).Call(ctx, Unit{})
	if err != nil {
		h.emitTCPError(emit, err)
		return
	}
	defer conn.Close()
	emit("TCP Connection established")

	if _, err := conn.Write([]byte(CustomTestPayload + "\n")); err != nil {
		h.emitTCPError(emit, err)
		return
	}
	emit("TCP message sent: " + CustomTestPayload)

	// Each read restarts the timeout, so a chatty peer may keep us here
	// until it closes the connection or the context is done.
	err = readLines(conn, func(line string) {
		emit("TCP Response: " + line)
	})
	if err != nil {
		h.emitTCPError(emit, err)
	}
}

func (h *CustomHandler) emitTCPError(emit EmitFunc, err error) {
	if isTimeout(err) {
		emit("TCP read timed out")
		return
	}
	emit("TCP Connection failed: " + err.Error())
}

func (h *CustomHandler) runUDP(ctx context.Context, host, port string, emit EmitFunc) {
	conn, err := newConnPipeline(h.Config, "udp", host, port, h.Logger).Call(ctx, Unit{})
	if err != nil {
		emit("UDP Communication failed: " + err.Error())
		return
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(CustomTestPayload)); err != nil {
		emit("UDP Communication failed: " + err.Error())
		return
	}
	emit("UDP packet sent: " + CustomTestPayload)

	buffer := make([]byte, customMaxDatagramSize)
	count, err := conn.Read(buffer)
	switch {
	case isTimeout(err):
		emit("No UDP response received (timeout)")
	case err != nil:
		emit("UDP Communication failed: " + err.Error())
	case count <= 0:
		emit("UDP Response was empty")
	default:
		emit("UDP Response received")
		emit("UDP Response content: " + string(buffer[:count]))
	}
}
