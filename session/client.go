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

package session

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/flowio/flowio/endpoint"
	"github.com/flowio/flowio/ioasync"
	"github.com/flowio/flowio/protocol"
	"github.com/flowio/flowio/reactor"
	"github.com/flowio/flowio/socket"
	"github.com/flowio/flowio/tlsio"
	"github.com/flowio/flowio/transport"
)

// ClientOption configures an outbound Connect.
type ClientOption func(*clientConfig)

type clientConfig struct {
	tls    *tlsio.Config
	snappy bool
}

// WithClientTLS runs a TLS client handshake against ep before the session
// is handed to onSession, the Connect-side counterpart of WithTLS.
func WithClientTLS(cfg *tlsio.Config) ClientOption {
	return func(c *clientConfig) { c.tls = cfg }
}

// WithClientSnappy is the Connect-side counterpart of
// session.WithSnappy: it compresses the outbound side and decompresses
// the inbound side of a plain (non-TLS) connection as snappy blocks,
// transparently to newProto's own framing. Not supported together with
// WithClientTLS, for the same reason as the server side.
func WithClientSnappy() ClientOption {
	return func(c *clientConfig) { c.snappy = true }
}

// Connect dials ep (blocking, mirroring the teacher's own blocking
// kcp.DialWithOptions call in client/main.go) and registers the resulting
// connection with r under newProto, the per-session framing factory.
// onSession fires once the session is ready to use — immediately for a
// plain connection, or after a background TLS handshake completes for
// WithClientTLS, using the same Reactor.Post handoff session.acceptTLS
// uses on the server side.
func Connect(r *reactor.Reactor, ep endpoint.Endpoint, newProto func(*Session) protocol.Protocol, onSession func(*Session), onDisconnected func(*Session, error), opts ...ClientOption) (*Session, error) {
	var cfg clientConfig
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.snappy && cfg.tls != nil {
		return nil, errors.New("session: WithClientSnappy cannot be combined with WithClientTLS")
	}

	raw, err := socket.DialTCP(ep)
	if err != nil {
		return nil, err
	}
	if err := raw.SetNoDelay(true); err != nil {
		raw.Close()
		return nil, err
	}

	sess := &Session{ID: uuid.New()}
	finish := func(err error) {
		if err != nil && onDisconnected != nil {
			onDisconnected(sess, err)
		}
	}

	if cfg.tls == nil {
		if err := raw.SetNonblocking(true); err != nil {
			raw.Close()
			return nil, err
		}
		t := transport.NewTCP(raw)
		var tr ioasync.Transport = t
		proto := newProto(sess)
		if cfg.snappy {
			tr = transport.NewSnappy(t.Stream)
			proto = protocol.NewSnappyBlock(proto)
		}
		sess.transport = tr
		io, err := ioasync.NewStream(r, tr, proto, ioasync.Events{
			OnDisconnected: func(err error) { finish(err) },
		})
		if err != nil {
			t.Close()
			return nil, err
		}
		sess.io = io
		if onSession != nil {
			onSession(sess)
		}
		return sess, nil
	}

	tsock, err := tlsio.NewClient(raw, cfg.tls)
	if err != nil {
		raw.Close()
		return nil, err
	}
	go func() {
		hsErr := tsock.Handshake()
		raw.SetNonblocking(true)
		r.Post(func() {
			if hsErr != nil {
				tsock.Raw().Close()
				finish(hsErr)
				return
			}
			tstream := tlsio.NewStream(tsock)
			sess.transport = tstream
			io, err := ioasync.NewStream(r, tstream, newProto(sess), ioasync.Events{
				OnDisconnected: func(err error) { finish(err) },
			})
			if err != nil {
				tstream.Close()
				return
			}
			sess.io = io
			if onSession != nil {
				onSession(sess)
			}
		})
	}()
	return sess, nil
}
