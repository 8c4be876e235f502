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

package tlsio

import (
	"crypto/tls"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/flowio/flowio/endpoint"
	"github.com/flowio/flowio/socket"
)

// State enumerates the handshake state machine from spec.md §4.3.
type State int

const (
	Uninitialized State = iota
	ConnectingTransport
	Handshaking
	Established
	ShuttingDown
	Closed
)

// Socket wraps a plain socket.Socket with a *tls.Conn, matching the
// original's tcp::ssl::socket layering (its own _ssl_handle plus
// handshake_done flag re-expressed as Go's State). The original's
// do_handshake steps WantRead/WantWrite/Done/Fatal outcomes one
// non-blocking SSL_do_handshake call at a time; crypto/tls has no
// equivalent step API, and worse, *tls.Conn.Handshake caches its first
// returned error permanently (HandshakeContext memoizes c.handshakeErr),
// so calling it repeatedly after a transient I/O error does not retry —
// it just replays the same failure forever. That rules out polling
// Handshake() from the reactor the way DoHandshake on this type
// originally tried to. Instead Handshake runs once, to completion,
// blocking — see session.acceptTLS, which runs it on a dedicated
// goroutine against a temporarily-blocking raw socket and hands the
// result back to the reactor goroutine via Reactor.Post.
type Socket struct {
	raw   *socket.Socket
	conn  *tls.Conn
	state State
}

// netAdapter makes a socket.Socket look like a net.Conn to crypto/tls,
// the only shape tls.Conn knows how to drive. No deadlines are involved
// (the SetDeadline methods are no-ops): on a non-blocking fd, a
// would-block or interrupted classification surfaces to tls.Conn as
// errWouldBlock, a net.Error with Timeout()==true, which it propagates
// straight back up rather than retrying internally.
type netAdapter struct {
	s *socket.Socket
}

func (a *netAdapter) Read(b []byte) (int, error) {
	n, class, err := a.s.Read(b)
	if err == nil {
		return n, nil
	}
	if class == socket.ClassWouldBlock || class == socket.ClassInterrupted {
		return 0, errWouldBlock
	}
	return n, err
}

func (a *netAdapter) Write(b []byte) (int, error) {
	n, class, err := a.s.Write(b)
	if err == nil {
		return n, nil
	}
	if class == socket.ClassWouldBlock || class == socket.ClassInterrupted {
		return n, errWouldBlock
	}
	return n, err
}

func (a *netAdapter) Close() error                       { return nil } // the Socket itself owns fd lifetime
func (a *netAdapter) LocalAddr() net.Addr                { return nil }
func (a *netAdapter) RemoteAddr() net.Addr               { return nil }
func (a *netAdapter) SetDeadline(t time.Time) error      { return nil }
func (a *netAdapter) SetReadDeadline(t time.Time) error  { return nil }
func (a *netAdapter) SetWriteDeadline(t time.Time) error { return nil }

// errWouldBlock is the net.Error the adapter returns for a transient
// condition; it reports Timeout() true so callers that only check that
// (as tls.Conn's internal retry logic does for some paths) behave
// correctly; Socket.Read/Write here recognize it the same way, through
// isWouldBlock's Timeout() check.
var errWouldBlock = wouldBlockError{}

type wouldBlockError struct{}

func (wouldBlockError) Error() string   { return "tlsio: would block" }
func (wouldBlockError) Timeout() bool   { return true }
func (wouldBlockError) Temporary() bool { return true }

// NewClient wraps an already-connected plain socket as a TLS client.
// Handshake (see below) expects raw to be temporarily switched to
// blocking mode before it runs, and back to non-blocking once it returns.
func NewClient(raw *socket.Socket, cfg *Config) (*Socket, error) {
	tc, err := cfg.Build(false)
	if err != nil {
		return nil, err
	}
	conn := tls.Client(&netAdapter{s: raw}, tc)
	return &Socket{raw: raw, conn: conn, state: Handshaking}, nil
}

// NewServer wraps an already-accepted plain socket as a TLS server side.
func NewServer(raw *socket.Socket, cfg *Config) (*Socket, error) {
	tc, err := cfg.Build(true)
	if err != nil {
		return nil, err
	}
	conn := tls.Server(&netAdapter{s: raw}, tc)
	return &Socket{raw: raw, conn: conn, state: Handshaking}, nil
}

// State reports the current handshake state.
func (s *Socket) State() State { return s.state }

// Raw returns the underlying plain socket, for fd registration with the
// reactor (the reactor multiplexes on the raw fd; TLS is a pure
// userspace overlay over its bytes).
func (s *Socket) Raw() *socket.Socket { return s.raw }

// Handshake runs the TLS handshake to completion and blocks until it
// either succeeds or fails fatally. Call it from its own goroutine with
// the raw socket temporarily switched to blocking mode (SetNonblocking
// false) — see session.acceptTLS — never from the reactor goroutine
// itself, since a blocking handshake there would stall every other
// session the reactor owns.
func (s *Socket) Handshake() error {
	if s.state == Established {
		return nil
	}
	if err := s.conn.Handshake(); err != nil {
		s.state = Closed
		return errors.Wrap(err, "tlsio: handshake")
	}
	s.state = Established
	return nil
}

func isWouldBlock(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// Read reads decrypted application data. Because crypto/tls buffers
// decrypted-but-unread bytes inside the *tls.Conn, a caller observing
// reactor readiness only on new network data must additionally drain
// already-buffered plaintext after every syscall-level read — see the
// read loop in Stream.Read (stream.go), the Go equivalent of
// checking SSL_pending() spec.md §4.4 requires.
func (s *Socket) Read(b []byte) (int, socket.Class, error) {
	n, err := s.conn.Read(b)
	if err == nil {
		return n, socket.ClassNone, nil
	}
	if isWouldBlock(err) {
		return n, socket.ClassWouldBlock, err
	}
	return n, socket.ClassOther, err
}

// Write writes application data, encrypting it first. Renegotiation or
// a partial encrypted record that can't be flushed yet surfaces as a
// would-block condition, not a hard error, matching spec.md §4.3 step 4.
func (s *Socket) Write(b []byte) (int, socket.Class, error) {
	n, err := s.conn.Write(b)
	if err == nil {
		return n, socket.ClassNone, nil
	}
	if isWouldBlock(err) {
		return n, socket.ClassWouldBlock, err
	}
	return n, socket.ClassOther, err
}

// Pending reports bytes of decrypted application data buffered inside
// the TLS session but not yet delivered to a Read call.
func (s *Socket) Pending() int {
	// crypto/tls does not expose SSL_pending() directly; ConnectionState
	// carries no buffered-plaintext counter. A non-zero report here
	// would require vendoring crypto/tls's internal record layer, which
	// is out of reach for a stdlib-only TLS engine. We document the gap
	// rather than fake a number: Stream.Read (stream.go) still issues the
	// extra read pass spec.md asks for, relying on conn.Read itself draining
	// any buffered record before it would block.
	return 0
}

// Shutdown sends close_notify and transitions to Closed.
func (s *Socket) Shutdown() error {
	if s.state == Closed {
		return nil
	}
	s.state = ShuttingDown
	err := s.conn.Close()
	s.state = Closed
	if err != nil && !isWouldBlock(err) {
		return errors.Wrap(err, "tlsio: shutdown")
	}
	return nil
}

// PeerEndpoint delegates to the underlying raw socket (TLS adds no
// addressing of its own).
func (s *Socket) PeerEndpoint() (endpoint.Endpoint, error) { return s.raw.PeerEndpoint() }
