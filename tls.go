//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/measurexlite/tls.go
//

package mpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/bassosimone/safeconn"
)

// TLSEngine is the engine to create a new [TLSConn].
type TLSEngine interface {
	// Client builds a new client [TLSConn].
	Client(conn net.Conn, config *tls.Config) TLSConn

	// Name returns the engine name.
	Name() string

	// Parrot returns the configured parrot or an empty string.
	Parrot() string
}

// TLSEngineStdlib implements [TLSEngine] for the standard library.
//
// The zero value is ready to use.
type TLSEngineStdlib struct{}

var _ TLSEngine = TLSEngineStdlib{}

// Client implements [TLSEngine] using [tls.Client].
func (TLSEngineStdlib) Client(conn net.Conn, config *tls.Config) TLSConn {
	return tls.Client(conn, config)
}

// Name implements [TLSEngine].
func (TLSEngineStdlib) Name() string {
	return "stdlib"
}

// Parrot implements [TLSEngine].
func (TLSEngineStdlib) Parrot() string {
	return ""
}

// TLSConn abstracts over [*tls.Conn].
type TLSConn interface {
	// ConnectionState returns the connection state.
	ConnectionState() tls.ConnectionState

	// HandshakeContext performs the handshake unless interrupted by the context.
	HandshakeContext(ctx context.Context) error

	net.Conn
}

// NewTLSConfig returns the [*tls.Config] for a single connection.
//
// The roots come from [Config.RootCAs]. When trustAll is true, certificate
// verification is disabled for this configuration only: nothing else in
// the process is affected, including later connections to the same host.
func NewTLSConfig(cfg *Config, serverName string, nextProtos []string, trustAll bool) *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: trustAll,
		NextProtos:         nextProtos,
		RootCAs:            cfg.RootCAs,
		ServerName:         serverName,
	}
}

// IsCertificateError returns whether err is caused by certificate verification.
func IsCertificateError(err error) bool {
	var (
		verificationErr *tls.CertificateVerificationError
		hostnameErr     x509.HostnameError
		authorityErr    x509.UnknownAuthorityError
		invalidErr      x509.CertificateInvalidError
	)
	return errors.As(err, &verificationErr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &invalidErr)
}

// NewTLSHandshakeFunc returns a new [*TLSHandshakeFunc] using the given [*tls.Config].
//
// See [NewTLSConfig] for building tlsConfig from a [*Config].
func NewTLSHandshakeFunc(cfg *Config, tlsConfig *tls.Config, logger SLogger) *TLSHandshakeFunc {
	runtimex.Assert(tlsConfig != nil)
	return &TLSHandshakeFunc{
		Config:        tlsConfig,
		Engine:        TLSEngineStdlib{},
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
	}
}

// TLSHandshakeFunc performs a TLS handshake over an existing [net.Conn].
//
// Returns either a valid [TLSConn] or an error, never both. On failure the
// connection is closed.
//
// All fields are safe to modify after construction but before first use.
type TLSHandshakeFunc struct {
	// Config contains the [*tls.Config] to use.
	//
	// Set by [NewTLSHandshakeFunc] to the user-provided [*tls.Config] pointer.
	Config *tls.Config

	// Engine is the [TLSEngine] to use to handshake.
	//
	// Set by [NewTLSHandshakeFunc] to [TLSEngineStdlib].
	Engine TLSEngine

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewTLSHandshakeFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use.
	//
	// Set by [NewTLSHandshakeFunc] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time.
	//
	// Set by [NewTLSHandshakeFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[net.Conn, TLSConn] = &TLSHandshakeFunc{}

// Call performs the handshake over conn.
func (op *TLSHandshakeFunc) Call(ctx context.Context, conn net.Conn) (TLSConn, error) {
	runtimex.Assert(op.Config != nil)
	config := op.Config.Clone()
	config.Time = op.TimeNow

	endpoint := []any{
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", safeconn.Network(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.String("tlsEngineName", op.Engine.Name()),
		slog.String("tlsParrot", op.Engine.Parrot()),
		slog.Any("tlsOfferedProtocols", config.NextProtos),
		slog.String("tlsServerName", config.ServerName),
		slog.Bool("tlsSkipVerify", config.InsecureSkipVerify),
	}

	tconn := op.Engine.Client(conn, config)
	t0 := op.TimeNow()
	deadline, _ := ctx.Deadline()
	op.Logger.Info("tlsHandshakeStart", append(endpoint, slog.Time("deadline", deadline), slog.Time("t", t0))...)

	err := tconn.HandshakeContext(ctx)
	state := tconn.ConnectionState()

	op.Logger.Info("tlsHandshakeDone", append(endpoint,
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.Bool("tlsCertificateError", IsCertificateError(err)),
		slog.String("tlsCipherSuite", tls.CipherSuiteName(state.CipherSuite)),
		slog.String("tlsNegotiatedProtocol", state.NegotiatedProtocol),
		slog.Any("tlsPeerSubjects", peerSubjects(state, err)),
		slog.String("tlsVersion", tls.VersionName(state.Version)),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)...)

	if err != nil {
		tconn.Close()
		return nil, err
	}
	return tconn, nil
}

// peerSubjects returns the subjects of the peer certificates, falling
// back to the certificate carried by a verification error.
func peerSubjects(state tls.ConnectionState, err error) []string {
	out := []string{}
	var verificationErr *tls.CertificateVerificationError
	if errors.As(err, &verificationErr) {
		for _, cert := range verificationErr.UnverifiedCertificates {
			out = append(out, cert.Subject.String())
		}
		return out
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) && hostnameErr.Certificate != nil {
		return append(out, hostnameErr.Certificate.Subject.String())
	}
	for _, cert := range state.PeerCertificates {
		out = append(out, cert.Subject.String())
	}
	return out
}
