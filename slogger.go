//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/netxlite/dialer.go
//

package mpclient

import "log/slog"

// SLogger abstracts the [*slog.Logger] behavior.
//
// Primitives and handlers log at two levels:
//   - Info for exchange lifecycle and protocol events (connect, TLS handshake,
//     HTTP round trip, DNS query and response, NTP exchange)
//   - Debug for per-I/O events (read, write, set deadline)
//
// The [*slog.Logger] type satisfies this interface.
type SLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// DefaultSLogger returns a [*slog.Logger] backed by [slog.DiscardHandler].
//
// Nothing is written to stdout or stderr unless the caller configures a logger.
func DefaultSLogger() SLogger {
	return slog.New(slog.DiscardHandler)
}

// orDefaultSLogger returns logger, or [DefaultSLogger] when logger is nil.
func orDefaultSLogger(logger SLogger) SLogger {
	if logger == nil {
		return DefaultSLogger()
	}
	return logger
}

// spanSLogger is an [SLogger] appending a spanID attribute to every event.
type spanSLogger struct {
	logger SLogger
	spanID string
}

// newSpanSLogger wraps logger such that each event carries spanID.
func newSpanSLogger(logger SLogger, spanID string) *spanSLogger {
	return &spanSLogger{logger: logger, spanID: spanID}
}

var _ SLogger = &spanSLogger{}

// Debug implements [SLogger].
func (sl *spanSLogger) Debug(msg string, args ...any) {
	sl.logger.Debug(msg, append(args, slog.String("spanID", sl.spanID))...)
}

// Info implements [SLogger].
func (sl *spanSLogger) Info(msg string, args ...any) {
	sl.logger.Info(msg, append(args, slog.String("spanID", sl.spanID))...)
}
