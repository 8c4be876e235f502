// The MIT License (MIT)
//
// Copyright (c) 2024 flowio contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package tlsio overlays the TLS state machine described in spec.md §4.3
// on top of a plain socket.Socket, driving crypto/tls as the "cryptographic
// primitives library" spec.md §1 names as an external collaborator
// specified only by the interfaces the TLS layer consumes.
package tlsio

import (
	"crypto/tls"
	"crypto/x509"

	"github.com/pkg/errors"
)

// ClientAuth mirrors nabbar/golib/certificates' AuthClient knob: how hard
// the server insists on a client certificate.
type ClientAuth = tls.ClientAuthType

// Config is the context configuration surface spec.md §4.3 lists:
// certificate+key (server), CA bundle (client or mTLS server), cipher
// list / ciphersuites, min/max version, ALPN list, SNI dispatch, session
// cache, keylog, and post-handshake auth. Field names follow
// nabbar/golib/certificates.Config (CipherList, CurveList, RootCA,
// ClientCA, Certs, VersionMin/Max, AuthClient) translated into the
// crypto/tls vocabulary (CipherSuites are uint16 IDs, Curves are
// tls.CurveID, certs are tls.Certificate pairs already parsed).
type Config struct {
	// Certificates holds the server's (or mTLS client's) certificate
	// chains plus private keys.
	Certificates []tls.Certificate

	// RootCAs validates the peer's certificate (client verifying a
	// server, or a server doing mutual auth).
	RootCAs *x509.CertPool

	// ClientCAs is consulted when AuthClient requires a client cert.
	ClientCAs *x509.CertPool

	// AuthClient controls whether/how the server demands a client cert.
	AuthClient ClientAuth

	// CipherSuites restricts TLS <=1.2 cipher negotiation; nil accepts
	// the crypto/tls default list. TLS 1.3 ciphersuites are not
	// configurable in crypto/tls (by design) so this only bites below
	// 1.3, matching the OpenSSL distinction spec.md draws between
	// "cipher list (<=1.2)" and "ciphersuites (1.3)".
	CipherSuites []uint16

	// CurvePreferences orders ECDHE curve negotiation.
	CurvePreferences []tls.CurveID

	// VersionMin / VersionMax bound the negotiated protocol version.
	// Zero means "let crypto/tls decide" (its own secure default).
	VersionMin uint16
	VersionMax uint16

	// ALPN is the application protocol list: the client's offer, or
	// (together with SNIDispatch) the server's supported set.
	ALPN []string

	// ServerName is set by a client for SNI; a server ignores it
	// directly and instead may inspect ClientHelloInfo.ServerName from
	// inside SNIDispatch.
	ServerName string

	// SNIDispatch lets a server switch certificate/config per requested
	// hostname (virtual hosting), matching spec.md §4.3's "server
	// dispatches via callback". Returning nil keeps the base Config.
	SNIDispatch func(hello *tls.ClientHelloInfo) (*Config, error)

	// SessionCacheSize, when > 0, installs a client-side LRU session cache
	// of that many entries for resumption (0 installs none); it has no
	// effect on a server.
	SessionCacheSize int

	// SessionTicketsDisabled turns off stateless session tickets.
	SessionTicketsDisabled bool

	// KeyLogWriter, when set, receives the TLS key log for offline
	// decryption during debugging — same escape hatch OpenSSL's
	// SSL_CTX_set_keylog_callback offers.
	KeyLogWriter interface {
		Write(p []byte) (int, error)
	}

	// PostHandshakeAuth makes a server require and verify a client
	// certificate (ClientAuth = RequireAndVerifyClientCert) during the
	// initial handshake. crypto/tls has no post-handshake client
	// authentication, so no certificate is requested after the handshake.
	PostHandshakeAuth bool

	// InsecureSkipVerify disables a client's verification of the
	// server's certificate chain and host name, the same escape hatch
	// crypto/tls.Config exposes directly under this exact name — kept
	// for connecting to a self-signed or as-yet-untrusted test server.
	InsecureSkipVerify bool
}

// Build turns Config into a *tls.Config ready to hand to tls.Client /
// tls.Server. isServer only decides whether SNIDispatch is installed;
// ALPN needs no role switch (NextProtos serves both directions
// identically in crypto/tls; the server/client asymmetry is in who's
// offering vs. selecting, which crypto/tls itself resolves).
func (c *Config) Build(isServer bool) (*tls.Config, error) {
	if c == nil {
		return &tls.Config{}, nil
	}
	tc := &tls.Config{
		Certificates:           c.Certificates,
		RootCAs:                c.RootCAs,
		ClientCAs:              c.ClientCAs,
		ClientAuth:             c.AuthClient,
		CipherSuites:           c.CipherSuites,
		CurvePreferences:       c.CurvePreferences,
		MinVersion:             c.VersionMin,
		MaxVersion:             c.VersionMax,
		NextProtos:             append([]string(nil), c.ALPN...),
		ServerName:             c.ServerName,
		SessionTicketsDisabled: c.SessionTicketsDisabled,
		InsecureSkipVerify:     c.InsecureSkipVerify,
	}
	if c.SessionCacheSize > 0 {
		tc.ClientSessionCache = tls.NewLRUClientSessionCache(c.SessionCacheSize)
	}
	if c.KeyLogWriter != nil {
		tc.KeyLogWriter = c.KeyLogWriter
	}
	if c.PostHandshakeAuth {
		tc.ClientAuth = tls.RequireAndVerifyClientCert
		tc.GetConfigForClient = nil // crypto/tls has no post-handshake auth; the certificate is demanded in the initial handshake instead.
	}
	if isServer && c.SNIDispatch != nil {
		tc.GetConfigForClient = func(hello *tls.ClientHelloInfo) (*tls.Config, error) {
			sub, err := c.SNIDispatch(hello)
			if err != nil {
				return nil, errors.Wrap(err, "tlsio: sni dispatch")
			}
			if sub == nil {
				return nil, nil
			}
			return sub.Build(true)
		}
	}
	return tc, nil
}
