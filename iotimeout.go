// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"context"
	"errors"
	"net"
	"time"
)

// NewIOTimeoutFunc returns a new [*IOTimeoutFunc] configured from cfg.
func NewIOTimeoutFunc(cfg *Config) *IOTimeoutFunc {
	return &IOTimeoutFunc{
		Timeout: cfg.Timeout,
		TimeNow: cfg.TimeNow,
	}
}

// IOTimeoutFunc wraps a [net.Conn] such that each Read and each Write
// must complete within Timeout.
//
// Before every Read the wrapper sets the read deadline to now plus Timeout,
// and likewise for Write. Hence, a peer that keeps sending data keeps the
// connection alive, while a peer that stops for longer than Timeout causes
// the pending operation to fail with [os.ErrDeadlineExceeded].
//
// Place this stage after [*ObserveConnFunc] so that deadline changes are logged.
type IOTimeoutFunc struct {
	// Timeout bounds each Read and Write. Zero disables the wrapper.
	//
	// Set by [NewIOTimeoutFunc] from [Config.Timeout].
	Timeout time.Duration

	// TimeNow is the function to get the current time.
	//
	// Set by [NewIOTimeoutFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[net.Conn, net.Conn] = &IOTimeoutFunc{}

// Call wraps conn. It never fails.
func (op *IOTimeoutFunc) Call(ctx context.Context, conn net.Conn) (net.Conn, error) {
	if op.Timeout <= 0 {
		return conn, nil
	}
	return &ioTimeoutConn{Conn: conn, op: op}, nil
}

// ioTimeoutConn is the [net.Conn] returned by [*IOTimeoutFunc].
type ioTimeoutConn struct {
	net.Conn
	op *IOTimeoutFunc
}

// Read implements [net.Conn].
func (c *ioTimeoutConn) Read(buf []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(c.op.TimeNow().Add(c.op.Timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(buf)
}

// Write implements [net.Conn].
func (c *ioTimeoutConn) Write(data []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(c.op.TimeNow().Add(c.op.Timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(data)
}

// isTimeout returns whether err is a [net.Error] reporting a timeout.
func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
