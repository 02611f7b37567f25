// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 representing a span.
//
// Each exchange run by [*Dispatcher] is a span: it performs a single
// request and can fail in a single, specific way. The span ID is attached
// to every log event emitted while running the exchange.
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
