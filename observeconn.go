//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/measurexlite/conn.go
//

package mpclient

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bassosimone/safeconn"
)

// NewObserveConnFunc returns a new [*ObserveConnFunc] configured from cfg.
func NewObserveConnFunc(cfg *Config, logger SLogger) *ObserveConnFunc {
	return &ObserveConnFunc{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
	}
}

// ObserveConnFunc wraps a [net.Conn] to log its I/O operations.
//
// Reads, writes, and deadline changes are logged at [slog.LevelDebug]. Close
// is logged at [slog.LevelInfo] as a closeStart/closeDone pair.
//
// All fields are safe to modify after construction but before first use.
type ObserveConnFunc struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewObserveConnFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewObserveConnFunc] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time.
	//
	// Set by [NewObserveConnFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[net.Conn, net.Conn] = &ObserveConnFunc{}

// Call wraps conn. It never fails.
func (op *ObserveConnFunc) Call(ctx context.Context, conn net.Conn) (net.Conn, error) {
	observed := &observedConn{
		Conn: conn,
		op:   op,
		endpoint: []any{
			slog.String("localAddr", safeconn.LocalAddr(conn)),
			slog.String("protocol", safeconn.Network(conn)),
			slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		},
	}
	return observed, nil
}

// observedConn is the [net.Conn] returned by [*ObserveConnFunc].
type observedConn struct {
	net.Conn
	closeonce sync.Once
	endpoint  []any
	op        *ObserveConnFunc
}

// attrs returns the endpoint attributes followed by extra.
func (c *observedConn) attrs(extra ...any) []any {
	out := make([]any, 0, len(c.endpoint)+len(extra))
	out = append(out, c.endpoint...)
	return append(out, extra...)
}

// done returns the attributes shared by every *Done event.
func (c *observedConn) done(t0 time.Time, err error, extra ...any) []any {
	return c.attrs(append([]any{
		slog.Any("err", err),
		slog.String("errClass", c.op.ErrClassifier.Classify(err)),
		slog.Time("t0", t0),
		slog.Time("t", c.op.TimeNow()),
	}, extra...)...)
}

// Close implements [net.Conn].
//
// Subsequent calls return [net.ErrClosed].
func (c *observedConn) Close() (err error) {
	err = net.ErrClosed
	c.closeonce.Do(func() {
		t0 := c.op.TimeNow()
		c.op.Logger.Info("closeStart", c.attrs(slog.Time("t", t0))...)
		err = c.Conn.Close()
		c.op.Logger.Info("closeDone", c.done(t0, err)...)
	})
	return
}

// Read implements [net.Conn].
func (c *observedConn) Read(buf []byte) (int, error) {
	t0 := c.op.TimeNow()
	c.op.Logger.Debug("readStart", c.attrs(slog.Int("ioBufferSize", len(buf)), slog.Time("t", t0))...)
	count, err := c.Conn.Read(buf)
	c.op.Logger.Debug("readDone", c.done(t0, err, slog.Int("ioBytesCount", count))...)
	return count, err
}

// Write implements [net.Conn].
func (c *observedConn) Write(data []byte) (int, error) {
	t0 := c.op.TimeNow()
	c.op.Logger.Debug("writeStart", c.attrs(slog.Int("ioBufferSize", len(data)), slog.Time("t", t0))...)
	count, err := c.Conn.Write(data)
	c.op.Logger.Debug("writeDone", c.done(t0, err, slog.Int("ioBytesCount", count))...)
	return count, err
}

// logDeadline logs a deadline change named by event.
func (c *observedConn) logDeadline(event string, deadline time.Time) {
	c.op.Logger.Debug(event, c.attrs(slog.Time("deadline", deadline), slog.Time("t", c.op.TimeNow()))...)
}

// SetDeadline implements [net.Conn].
func (c *observedConn) SetDeadline(t time.Time) error {
	c.logDeadline("setDeadline", t)
	return c.Conn.SetDeadline(t)
}

// SetReadDeadline implements [net.Conn].
func (c *observedConn) SetReadDeadline(t time.Time) error {
	c.logDeadline("setReadDeadline", t)
	return c.Conn.SetReadDeadline(t)
}

// SetWriteDeadline implements [net.Conn].
func (c *observedConn) SetWriteDeadline(t time.Time) error {
	c.logDeadline("setWriteDeadline", t)
	return c.Conn.SetWriteDeadline(t)
}
