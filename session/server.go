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

// Handler is the set of user callbacks a Server drives. NewProtocol is
// required: it builds the framing Protocol for a freshly accepted
// Session (spec.md §9 makes the protocol a per-session type parameter
// in the "ideal" rewrite; here it's a factory closure instead, since Go
// hosts this runtime's protocols as an interface value, not a generic
// parameter — the hot byte-framing path itself, Dispatch, still never
// allocates per call or dispatches through any of this indirection).
type Handler struct {
	NewProtocol func(*Session) protocol.Protocol

	// OnSession fires once a session is registered and its I/O started.
	OnSession func(*Session)

	// OnDisconnected fires once a session's transport has closed, after
	// it has been removed from the Map.
	OnDisconnected func(sess *Session, err error)

	// OnHandshake fires once per TLS session after its handshake
	// completes, before the user protocol takes over reading.
	OnHandshake func(sess *Session, info *tlsio.SessionInfo)

	// OnAcceptorDisconnected handles the listener itself failing; nil
	// means the spec.md §7 default (panic — "a listener losing its
	// socket is unrecoverable").
	OnAcceptorDisconnected func(err error)
}

// Server composes an acceptor with a session Map, per spec.md §4.8.
type Server struct {
	r        *reactor.Reactor
	ln       *socket.Listener
	accept   *transport.Accept
	acceptor *ioasync.Acceptor
	sessions *Map
	handler  Handler

	maxSessions int
	tls         *tlsio.Config
	snappy      bool

	totalAccepted int
}

// Option configures a Server at Listen time.
type Option func(*Server)

// MaxSessions caps concurrent sessions; connections accepted over the
// cap are closed immediately (SPEC_FULL.md §D.5's throttle).
func MaxSessions(n int) Option {
	return func(s *Server) { s.maxSessions = n }
}

// WithTLS makes every accepted connection complete a blocking TLS
// handshake on its own goroutine (see acceptTLS) before the user protocol
// takes over.
func WithTLS(cfg *tlsio.Config) Option {
	return func(s *Server) { s.tls = cfg }
}

// WithSnappy compresses every accepted plain (non-TLS) connection's
// bytes as snappy blocks: the transport is decorated with
// transport.Snappy on the write side, and Handler.NewProtocol's result
// is wrapped in protocol.SnappyBlock on the read side, so the user's
// framing protocol runs over decompressed bytes with no other change.
// Combining this with WithTLS is not supported — transport.Snappy
// decorates a *transport.Stream directly and TLS's Stream is a distinct
// type overlaying crypto/tls, so compression would need to move above
// the TLS record layer instead, which this option does not attempt.
func WithSnappy() Option {
	return func(s *Server) { s.snappy = true }
}

// Listen binds, listens, and starts accepting on ep. backlog<=0 uses the
// platform default.
func Listen(r *reactor.Reactor, ep endpoint.Endpoint, backlog int, h Handler, opts ...Option) (*Server, error) {
	if h.NewProtocol == nil {
		return nil, errors.New("session: Handler.NewProtocol is required")
	}
	raw, err := socket.ListenTCP(ep, backlog)
	if err != nil {
		return nil, err
	}
	ln, err := socket.NewListener(raw)
	if err != nil {
		raw.Close()
		return nil, err
	}
	srv := &Server{r: r, ln: ln, sessions: NewMap(), handler: h}
	for _, o := range opts {
		o(srv)
	}
	if srv.snappy && srv.tls != nil {
		ln.Close()
		return nil, errors.New("session: WithSnappy cannot be combined with WithTLS")
	}
	srv.accept = transport.NewAccept(ln)
	acceptor, err := ioasync.NewAcceptor(r, srv.accept, srv.onAccept, h.OnAcceptorDisconnected)
	if err != nil {
		ln.Close()
		return nil, err
	}
	srv.acceptor = acceptor
	return srv, nil
}

// Backlog reports the total number of connections ever accepted by this
// server (SPEC_FULL.md §D.5).
func (srv *Server) Backlog() int { return srv.totalAccepted }

// Sessions returns the live session map.
func (srv *Server) Sessions() *Map { return srv.sessions }

func (srv *Server) onAccept(raw *socket.Socket, _ endpoint.Endpoint) {
	srv.totalAccepted++
	if srv.maxSessions > 0 && srv.sessions.Len() >= srv.maxSessions {
		raw.Close()
		return
	}
	if raw.Family() != endpoint.Unix {
		if err := raw.SetNoDelay(true); err != nil {
			raw.Close()
			return
		}
	}

	id := uuid.New()
	sess := &Session{ID: id, srv: srv}

	if srv.tls == nil {
		if err := raw.SetNonblocking(true); err != nil {
			raw.Close()
			return
		}
		t := transport.NewTCP(raw)
		var tr ioasync.Transport = t
		proto := srv.handler.NewProtocol(sess)
		if srv.snappy {
			tr = transport.NewSnappy(t.Stream)
			proto = protocol.NewSnappyBlock(proto)
		}
		sess.transport = tr
		io, err := ioasync.NewStream(srv.r, tr, proto, ioasync.Events{
			OnDisconnected: func(err error) { srv.sessionClosed(id, err) },
		})
		if err != nil {
			t.Close()
			return
		}
		sess.io = io
		srv.sessions.put(id, sess)
		if srv.handler.OnSession != nil {
			srv.handler.OnSession(sess)
		}
		return
	}

	srv.acceptTLS(sess, raw)
}

// acceptTLS runs the TLS handshake for a freshly accepted connection
// before handing it to the user protocol. crypto/tls.Conn.Handshake has
// no step-wise non-blocking API (see tlsio.Socket.Handshake's doc), so
// rather than poll it from the reactor, the handshake runs to completion
// on its own goroutine against a temporarily-blocking raw socket. The
// reactor goroutine never touches sess or srv.sessions while that
// goroutine runs; the goroutine touches nothing but tsock and the raw
// socket, and hands its result back via Reactor.Post, which is the only
// door cross-goroutine handoff takes into this single-threaded runtime.
func (srv *Server) acceptTLS(sess *Session, raw *socket.Socket) {
	tsock, err := tlsio.NewServer(raw, srv.tls)
	if err != nil {
		raw.Close()
		return
	}
	if err := raw.SetNonblocking(false); err != nil {
		raw.Close()
		return
	}

	go func() {
		hsErr := tsock.Handshake()
		raw.SetNonblocking(true)
		srv.r.Post(func() { srv.finishTLSAccept(sess, tsock, hsErr) })
	}()
}

// finishTLSAccept runs on the reactor goroutine once the background
// handshake in acceptTLS has settled, one way or the other.
func (srv *Server) finishTLSAccept(sess *Session, tsock *tlsio.Socket, hsErr error) {
	if hsErr != nil {
		tsock.Raw().Close()
		if srv.handler.OnDisconnected != nil {
			srv.handler.OnDisconnected(sess, hsErr)
		}
		return
	}

	id := sess.ID
	tstream := tlsio.NewStream(tsock)
	sess.transport = tstream
	io, err := ioasync.NewStream(srv.r, tstream, srv.handler.NewProtocol(sess), ioasync.Events{
		OnDisconnected: func(err error) { srv.sessionClosed(id, err) },
	})
	if err != nil {
		tstream.Close()
		return
	}
	sess.io = io
	srv.sessions.put(id, sess)

	if srv.handler.OnHandshake != nil {
		if info, err := tsock.Inspect(); err == nil {
			srv.handler.OnHandshake(sess, info)
		}
	}
	if srv.handler.OnSession != nil {
		srv.handler.OnSession(sess)
	}
}

func (srv *Server) sessionClosed(id uuid.UUID, err error) {
	sess, ok := srv.sessions.remove(id)
	if ok && srv.handler.OnDisconnected != nil {
		srv.handler.OnDisconnected(sess, err)
	}
}

// UnregisterSession disconnects the session named by id; the map entry
// is removed once the resulting OnDisconnected fires (spec.md §4.8's
// removal path).
func (srv *Server) UnregisterSession(id uuid.UUID) {
	if sess, ok := srv.sessions.Get(id); ok {
		sess.Disconnect()
	}
}

// ExtractSession removes id from the map and returns its raw socket for
// handoff to another reactor or thread, without closing it. Per
// SPEC_FULL.md §E, Extracted precedes any Disconnected the transport
// might otherwise have produced, because deregistration happens here,
// synchronously, before any later readiness can reach the (now
// unregistered) watcher.
func (srv *Server) ExtractSession(id uuid.UUID) (*socket.Socket, bool) {
	sess, ok := srv.sessions.remove(id)
	if !ok {
		return nil, false
	}
	sess.io.Deregister()
	return sess.transport.Socket(), true
}

// Stream broadcasts data to every live session.
func (srv *Server) Stream(data []byte) {
	srv.sessions.Each(func(s *Session) { s.Publish(data) })
}

// StreamIf broadcasts data only to sessions matching pred.
func (srv *Server) StreamIf(pred func(*Session) bool, data []byte) {
	srv.sessions.Each(func(s *Session) {
		if pred(s) {
			s.Publish(data)
		}
	})
}

// Close stops accepting and disconnects every live session.
func (srv *Server) Close() error {
	srv.sessions.Each(func(s *Session) { s.Disconnect() })
	return srv.acceptor.Close()
}
