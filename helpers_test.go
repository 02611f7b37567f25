// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"sync"

	"github.com/bassosimone/netstub"
	"github.com/bassosimone/slogstub"
	"github.com/bassosimone/tlsstub"
)

// capturedRecords collects log records emitted, possibly concurrently,
// by the code under test.
type capturedRecords struct {
	mu      sync.Mutex
	records []slog.Record
}

func (cr *capturedRecords) add(record slog.Record) {
	cr.mu.Lock()
	cr.records = append(cr.records, record)
	cr.mu.Unlock()
}

// snapshot returns a copy of the records captured so far.
func (cr *capturedRecords) snapshot() []slog.Record {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return append([]slog.Record(nil), cr.records...)
}

// messages returns the messages of the records captured so far.
func (cr *capturedRecords) messages() []string {
	var out []string
	for _, record := range cr.snapshot() {
		out = append(out, record.Message)
	}
	return out
}

// newCapturingLogger returns a logger that captures all log records. The
// caller can inspect the records after exercising the code under test to
// verify which events were emitted.
func newCapturingLogger() (*slog.Logger, *capturedRecords) {
	records := &capturedRecords{}
	handler := &slogstub.FuncHandler{
		EnabledFunc: func(ctx context.Context, level slog.Level) bool {
			return true
		},
		HandleFunc: func(ctx context.Context, record slog.Record) error {
			records.add(record)
			return nil
		},
	}
	return slog.New(handler), records
}

// recordAttr returns the string value of the named attribute or "".
func recordAttr(record slog.Record, key string) string {
	var value string
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			value = attr.Value.String()
			return false
		}
		return true
	})
	return value
}

// newMockTLSEngine returns a [*tlsstub.FuncTLSEngine] that wraps the given
// [TLSConn]. The engine's ClientFunc returns the conn, NameFunc returns
// "mock", and ParrotFunc returns "".
func newMockTLSEngine(conn TLSConn) *tlsstub.FuncTLSEngine[TLSConn] {
	return &tlsstub.FuncTLSEngine[TLSConn]{
		ClientFunc: func(c net.Conn, config *tls.Config) TLSConn {
			return conn
		},
		NameFunc: func() string {
			return "mock"
		},
		ParrotFunc: func() string {
			return ""
		},
	}
}

// newMinimalConn returns a [*netstub.FuncConn] with only LocalAddrFunc and
// RemoteAddrFunc set. This is the minimum needed for code that calls
// [safeconn.LocalAddr], [safeconn.RemoteAddr], and [safeconn.Network]
// during construction.
func newMinimalConn() *netstub.FuncConn {
	return &netstub.FuncConn{
		LocalAddrFunc:  func() net.Addr { return &net.TCPAddr{} },
		RemoteAddrFunc: func() net.Addr { return &net.TCPAddr{} },
	}
}

// newLocalDialer returns a [Dialer] that ignores the requested address and
// dials address instead, using the requested network. Tests use it to point
// handlers that hardcode well-known ports (53, 123, 853) at local servers.
func newLocalDialer(address string) *netstub.FuncDialer {
	return &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, _ string) (net.Conn, error) {
			dialer := &net.Dialer{}
			return dialer.DialContext(ctx, network, address)
		},
	}
}

// collectLines gathers every group emitted through the returned EmitFunc.
func collectLines() (EmitFunc, func() []Line) {
	var (
		mu    sync.Mutex
		lines []Line
	)
	emit := func(texts ...string) {
		mu.Lock()
		lines = append(lines, Line(texts))
		mu.Unlock()
	}
	get := func() []Line {
		mu.Lock()
		defer mu.Unlock()
		return append([]Line(nil), lines...)
	}
	return emit, get
}

// flattenLines returns every text of every group, in order.
func flattenLines(lines []Line) []string {
	var out []string
	for _, line := range lines {
		out = append(out, line...)
	}
	return out
}
