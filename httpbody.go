// SPDX-License-Identifier: GPL-3.0-or-later

package mpclient

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bassosimone/safeconn"
)

// httpBodyWrapper emits structured log events for a response body
// lazily: httpBodyStreamStart on the first Read, and httpBodyStreamDone
// on Close, only if at least one Read happened.
type httpBodyWrapper struct {
	body      io.ReadCloser
	closeOnce sync.Once
	count     atomic.Int64
	didRead   atomic.Bool
	endpoint  []any
	hc        *HTTPConn
	readOnce  sync.Once
	t0        time.Time
}

// newHTTPBodyWrapper wraps body using the logging settings of hc.
func newHTTPBodyWrapper(body io.ReadCloser, hc *HTTPConn) *httpBodyWrapper {
	return &httpBodyWrapper{
		body: body,
		endpoint: []any{
			slog.String("localAddr", safeconn.LocalAddr(hc.conn)),
			slog.String("protocol", safeconn.Network(hc.conn)),
			slog.String("remoteAddr", safeconn.RemoteAddr(hc.conn)),
		},
		hc: hc,
	}
}

var _ io.ReadCloser = &httpBodyWrapper{}

// Close implements [io.ReadCloser].
func (b *httpBodyWrapper) Close() (err error) {
	b.closeOnce.Do(func() {
		err = b.body.Close()
		if b.didRead.Load() { // acquire: t0 is visible if this returns true
			b.hc.Logger.Info("httpBodyStreamDone", append(b.endpoint,
				slog.Any("err", err),
				slog.String("errClass", b.hc.ErrClassifier.Classify(err)),
				slog.Int64("ioBytesCount", b.count.Load()),
				slog.Time("t0", b.t0),
				slog.Time("t", b.hc.TimeNow()),
			)...)
		}
	})
	return
}

// Read implements [io.ReadCloser].
func (b *httpBodyWrapper) Read(buffer []byte) (int, error) {
	b.readOnce.Do(func() {
		b.t0 = b.hc.TimeNow() // write t0 BEFORE the atomic store (release)
		b.didRead.Store(true)
		b.hc.Logger.Info("httpBodyStreamStart", append(b.endpoint, slog.Time("t", b.t0))...)
	})
	count, err := b.body.Read(buffer)
	b.count.Add(int64(count))
	return count, err
}
