// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/safeconn"
)

// NTPConn wraps a UDP connection for a single NTP exchange.
//
// This type owns the underlying connection. The caller is responsible for
// calling Close() when done.
//
// Construct via [*NTPConnFunc].
type NTPConn struct {
	// conn is the owned connection.
	conn net.Conn

	// ErrClassifier classifies errors for structured logging.
	ErrClassifier ErrClassifier

	// Logger is the SLogger to use.
	Logger SLogger

	// TimeNow is the function to get the current time.
	TimeNow func() time.Time
}

// Close closes the underlying connection.
func (c *NTPConn) Close() error {
	return c.conn.Close()
}

// Conn returns the underlying net.Conn for logging purposes.
func (c *NTPConn) Conn() net.Conn {
	return c.conn
}

// Exchange sends one request and returns the server transmit time in
// Unix milliseconds.
func (c *NTPConn) Exchange(ctx context.Context) (int64, error) {
	deadline, _ := ctx.Deadline()
	t0 := c.TimeNow()
	endpoint := []any{
		slog.String("localAddr", safeconn.LocalAddr(c.conn)),
		slog.String("protocol", safeconn.Network(c.conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(c.conn)),
	}
	c.Logger.Info("ntpExchangeStart", append(endpoint,
		slog.Time("deadline", deadline),
		slog.Time("t", t0),
	)...)

	unixMillis, err := c.exchange()

	c.Logger.Info("ntpExchangeDone", append(endpoint,
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", c.ErrClassifier.Classify(err)),
		slog.Int64("ntpUnixMillis", unixMillis),
		slog.Time("t0", t0),
		slog.Time("t", c.TimeNow()),
	)...)
	return unixMillis, err
}

func (c *NTPConn) exchange() (int64, error) {
	if _, err := c.conn.Write(NewNTPRequestPacket()); err != nil {
		return 0, err
	}
	// Servers may append extension fields or a MAC.
	buffer := make([]byte, 1024)
	count, err := c.conn.Read(buffer)
	if err != nil {
		return 0, err
	}
	return ParseNTPReply(buffer[:count])
}

// NTPConnFunc wraps a net.Conn into an [*NTPConn].
//
// All fields are safe to modify after construction but before first use.
type NTPConnFunc struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewNTPConnFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewNTPConnFunc] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time.
	//
	// Set by [NewNTPConnFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

// NewNTPConnFunc returns a new [*NTPConnFunc] configured from cfg.
func NewNTPConnFunc(cfg *Config, logger SLogger) *NTPConnFunc {
	return &NTPConnFunc{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
	}
}

var _ Func[net.Conn, *NTPConn] = &NTPConnFunc{}

// Call implements [Func].
func (op *NTPConnFunc) Call(ctx context.Context, conn net.Conn) (*NTPConn, error) {
	return &NTPConn{
		conn:          conn,
		ErrClassifier: op.ErrClassifier,
		Logger:        op.Logger,
		TimeNow:       op.TimeNow,
	}, nil
}
