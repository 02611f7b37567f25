// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"context"
	"log/slog"
	"slices"
)

// Dispatcher runs each [Request] with the matching handler.
//
// Exchanges share nothing but the [*Config], which must not be modified
// once the first exchange has started.
type Dispatcher struct {
	// Config is the [*Config] passed to handlers.
	Config *Config

	// Logger is the [SLogger] to use.
	//
	// Each exchange logs through a wrapper adding a spanID attribute.
	Logger SLogger
}

// NewDispatcher returns a new [*Dispatcher]. A nil logger means [DefaultSLogger].
func NewDispatcher(cfg *Config, logger SLogger) *Dispatcher {
	return &Dispatcher{Config: cfg, Logger: orDefaultSLogger(logger)}
}

// Submit runs the exchange on a new goroutine and returns the channel
// where its lines are delivered in order. The channel is unbuffered and
// is closed once the exchange completes.
//
// A caller that stops reading before the channel is closed must cancel
// ctx. Doing that closes any in-flight connection and lets the goroutine
// discard the remaining lines and exit.
func (d *Dispatcher) Submit(ctx context.Context, req Request) <-chan Line {
	out := make(chan Line)
	go func() {
		defer close(out)
		d.Run(ctx, req, func(texts ...string) {
			select {
			case out <- Line(texts):
			case <-ctx.Done():
			}
		})
	}()
	return out
}

// Run runs the exchange synchronously, calling emit for each [Line].
func (d *Dispatcher) Run(ctx context.Context, req Request, emit EmitFunc) {
	logger := newSpanSLogger(d.Logger, NewSpanID())

	var count int
	emitLine := func(texts ...string) {
		if len(texts) <= 0 {
			return
		}
		count++
		emit(slices.Clone(texts)...)
	}

	t0 := d.Config.TimeNow()
	deadline, _ := ctx.Deadline()
	requestType := requestTypeName(req)
	logger.Info(
		"exchangeStart",
		slog.Time("deadline", deadline),
		slog.String("requestType", requestType),
		slog.Time("t", t0),
	)

	switch req := req.(type) {
	case *HTTPRequest:
		NewHTTPHandler(d.Config, logger).Run(ctx, req, emitLine)
	case *DNSRequest:
		NewDNSHandler(d.Config, logger).Run(ctx, req, emitLine)
	case *NTPRequest:
		NewNTPHandler(d.Config, logger).Run(ctx, req, emitLine)
	case *CustomRequest:
		NewCustomHandler(d.Config, logger).Run(ctx, req, emitLine)
	default:
		emitLine("Error: unsupported request type")
	}

	logger.Info(
		"exchangeDone",
		slog.Time("deadline", deadline),
		slog.Any("err", context.Cause(ctx)),
		slog.Int("linesCount", count),
		slog.String("requestType", requestType),
		slog.Time("t0", t0),
		slog.Time("t", d.Config.TimeNow()),
	)
}

func requestTypeName(req Request) string {
	switch req.(type) {
	case *HTTPRequest:
		return "http"
	case *DNSRequest:
		return "dns"
	case *NTPRequest:
		return "ntp"
	case *CustomRequest:
		return "custom"
	default:
		return "unknown"
	}
}
