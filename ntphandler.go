// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"context"
	"errors"
	"strings"
	"time"

	// Embedded zone database so named timezones resolve on hosts
	// without one installed.
	_ "time/tzdata"
)

const (
	// ntpServerTimeLayout renders the full server time.
	ntpServerTimeLayout = "2006-01-02T15:04:05.000"

	// ntpPort is the well-known NTP port.
	ntpPort = "123"
)

// errEmptyTimezone indicates that the timezone is empty after trimming.
var errEmptyTimezone = errors.New("timezone must not be empty")

// NTPHandler runs [*NTPRequest] exchanges.
type NTPHandler struct {
	// Config is the [*Config] to use.
	Config *Config

	// Logger is the [SLogger] to use.
	Logger SLogger
}

// NewNTPHandler returns a new [*NTPHandler].
func NewNTPHandler(cfg *Config, logger SLogger) *NTPHandler {
	return &NTPHandler{Config: cfg, Logger: orDefaultSLogger(logger)}
}

// Run sends one client request to port 123 of the host and renders the
// server transmit time in the requested zone.
//
// The host and the zone are checked before sending anything.
func (h *NTPHandler) Run(ctx context.Context, req *NTPRequest, emit EmitFunc) {
	host, err := parseHost(req.Host)
	if err != nil {
		emitError(emit, err)
		return
	}
	loc, err := loadTimezone(req.Timezone)
	if err != nil {
		emitError(emit, err)
		return
	}

	emit("Sending NTP request to " + host + "...")

	pipeline := Compose2(
		newConnPipeline(h.Config, "udp", host, ntpPort, h.Logger),
		NewNTPConnFunc(h.Config, h.Logger),
	)
	conn, err := pipeline.Call(ctx, Unit{})
	if err != nil {
		emitError(emit, err)
		return
	}
	defer conn.Close()

	unixMillis, err := conn.Exchange(ctx)
	if err != nil {
		emitError(emit, err)
		return
	}

	serverTime := time.UnixMilli(unixMillis).In(loc)
	emit("NTP Response received:")
	emit("Server time: " + serverTime.Format(ntpServerTimeLayout))
	emit("Formatted response:")
	emit("Time: "+serverTime.Format("15:04:05.000"), "Date: "+serverTime.Format(time.DateOnly))
}

// loadTimezone loads the IANA zone with the given name.
func loadTimezone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errEmptyTimezone
	}
	return time.LoadLocation(name)
}
