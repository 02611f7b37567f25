// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// NewCancelWatchFunc returns a new [*CancelWatchFunc] configured from cfg.
func NewCancelWatchFunc(cfg *Config, logger SLogger) *CancelWatchFunc {
	return &CancelWatchFunc{
		Logger:  logger,
		TimeNow: cfg.TimeNow,
	}
}

// CancelWatchFunc arranges for the connection to be closed when the context
// is done. A caller cancelling an exchange through [*Dispatcher] thus
// interrupts any read or write in progress instead of waiting for the
// per-I/O timeout to fire.
//
// The returned connection wraps the input connection. Closing it unregisters
// the context watcher and closes the underlying connection, so no goroutine
// outlives the connection even if the context is never cancelled.
//
// Closing twice is harmless: [net.Conn] implementations return
// [net.ErrClosed] and [*ObserveConnFunc] does the same.
type CancelWatchFunc struct {
	// Logger is the [SLogger] to use.
	//
	// Set by [NewCancelWatchFunc] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time.
	//
	// Set by [NewCancelWatchFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[net.Conn, net.Conn] = &CancelWatchFunc{}

// Call registers a context watcher using [context.AfterFunc] that closes
// the connection when the context is done.
func (op *CancelWatchFunc) Call(ctx context.Context, conn net.Conn) (net.Conn, error) {
	stop := context.AfterFunc(ctx, func() {
		op.Logger.Info(
			"cancelWatchClose",
			slog.Any("err", context.Cause(ctx)),
			slog.Time("t", op.TimeNow()),
		)
		conn.Close()
	})
	return &cancelWatchedConn{Conn: conn, stop: stop}, nil
}

// cancelWatchedConn wraps a [net.Conn] with a context cancellation watcher.
type cancelWatchedConn struct {
	net.Conn
	stop func() bool
}

// Close unregisters the context watcher and closes the underlying connection.
func (c *cancelWatchedConn) Close() error {
	c.stop()
	return c.Conn.Close()
}
