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

package ioasync

import (
	"golang.org/x/sys/unix"

	"github.com/flowio/flowio/pipe"
	"github.com/flowio/flowio/protocol"
	"github.com/flowio/flowio/reactor"
	"github.com/flowio/flowio/socket"
)

// Transport is what StreamIO needs from a byte-stream transport: both
// transport.Stream (and its TCP/Unix specializations) and tlsio.Stream
// satisfy this with no adapter, by construction.
type Transport interface {
	Socket() *socket.Socket
	In() *pipe.Pipe
	Out() *pipe.Pipe
	Read() (int, socket.Class, error)
	Write() (int, socket.Class, error)
	Publish(data []byte)
	Flush(size int)
	EOF()
	Close() error
}

// StreamIO is the bidirectional async I/O base from spec.md §4.6: one
// Transport, one Protocol, registered with a Reactor. It implements
// reactor.Watcher so the reactor can invoke it directly on readiness.
type StreamIO struct {
	r      *reactor.Reactor
	t      Transport
	proto  protocol.Protocol
	events Events
	fd     int

	writeArmed      bool
	closed          bool
	hadPendingRead  bool
	hadPendingWrite bool
}

// NewStream registers t and proto with r and returns the running host.
// Read interest is armed immediately; write interest is armed lazily by
// Publish, matching spec.md §4.6's "write arming" rule.
func NewStream(r *reactor.Reactor, t Transport, proto protocol.Protocol, events Events) (*StreamIO, error) {
	s := &StreamIO{r: r, t: t, proto: proto, events: events, fd: t.Socket().FD()}
	if err := r.RegisterIO(s.fd, unix.EPOLLIN, s); err != nil {
		return nil, err
	}
	return s, nil
}

// SetProtocol swaps the active Protocol, used after a Handshake
// protocol (or any other asynchronous setup step) reports Done
// and the host moves to the user-level framing protocol, per spec.md
// §4.5's handshake protocol note.
func (s *StreamIO) SetProtocol(p protocol.Protocol) { s.proto = p }

// Publish queues data for writing and arms write-readiness if needed.
func (s *StreamIO) Publish(data []byte) {
	s.t.Publish(data)
	s.armWrite()
}

func (s *StreamIO) armWrite() {
	if s.closed || s.writeArmed {
		return
	}
	s.writeArmed = true
	s.r.ModifyIO(s.fd, unix.EPOLLIN|unix.EPOLLOUT)
}

func (s *StreamIO) disarmWrite() {
	if s.closed || !s.writeArmed {
		return
	}
	s.writeArmed = false
	s.r.ModifyIO(s.fd, unix.EPOLLIN)
}

// Invoke is the reactor.Watcher entry point: mask carries the combined
// EPOLLIN/EPOLLOUT bits from one epoll_wait readiness report, delivered
// in a single call per spec.md §4.7's ordering guarantee.
func (s *StreamIO) Invoke(mask uint32) {
	if s.closed {
		return
	}
	if mask&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		s.Disconnect(errHup)
		return
	}
	if mask&unix.EPOLLIN != 0 {
		s.handleRead()
	}
	if s.closed {
		return
	}
	if mask&unix.EPOLLOUT != 0 {
		s.handleWrite()
	}
}

func (s *StreamIO) handleRead() {
	n, class, err := s.t.Read()
	if err != nil {
		switch class {
		case socket.ClassWouldBlock, socket.ClassInterrupted:
			return
		default:
			s.Disconnect(err)
			return
		}
	}
	if n == 0 {
		s.t.EOF()
		if s.events.OnEOF != nil {
			s.events.OnEOF()
		}
		return
	}

	in := s.t.In().Begin()
	consumed, messages := protocol.Dispatch(s.proto, in)
	if consumed > 0 {
		s.t.Flush(consumed)
	}
	if messages == 0 {
		if want := s.proto.MessageSize(in[consumed:]); want > len(in)-consumed {
			// spec.md §4.5: a protocol reporting more bytes than are
			// available is a bug, not "needs more data" — fatal.
			s.Disconnect(errFatalProtocol)
			return
		}
	}
	if !s.proto.Ok() {
		// Protocol drains any messages it already framed (handled by
		// Dispatch above) before the host disconnects, per spec.md
		// §4.5's "drain before close" tie-break.
		s.Disconnect(errProtocolFailed)
		return
	}

	pending := s.t.In().Size()
	if pending > 0 {
		if !s.hadPendingRead && s.events.OnPendingRead != nil {
			s.events.OnPendingRead(pending)
		}
		s.hadPendingRead = true
	} else {
		s.hadPendingRead = false
	}
}

func (s *StreamIO) handleWrite() {
	if s.t.Out().Size() == 0 {
		s.disarmWrite()
		return
	}
	_, class, err := s.t.Write()
	if err != nil {
		switch class {
		case socket.ClassWouldBlock, socket.ClassInterrupted:
			return
		default:
			s.Disconnect(err)
			return
		}
	}
	remaining := s.t.Out().Size()
	if remaining == 0 {
		s.disarmWrite()
		s.hadPendingWrite = false
		if s.events.OnEOS != nil {
			s.events.OnEOS()
		}
		return
	}
	if !s.hadPendingWrite && s.events.OnPendingWrite != nil {
		s.events.OnPendingWrite(remaining)
	}
	s.hadPendingWrite = true
}

// Disconnect tears down the transport and deregisters the watcher. It is
// idempotent: a second call is a no-op, satisfying spec.md §8's
// idempotence property.
func (s *StreamIO) Disconnect(err error) {
	if s.closed {
		return
	}
	s.closed = true
	s.r.UnregisterIO(s.fd)
	s.t.Close()
	if s.events.OnDisconnected != nil {
		s.events.OnDisconnected(err)
	}
	if s.events.OnDispose != nil {
		s.events.OnDispose()
	}
}

// Deregister removes the reactor registration without closing the
// transport or firing any events, for session.Server's ExtractSession:
// spec.md §4.8 hands the raw transport off to another owner rather than
// tearing it down.
func (s *StreamIO) Deregister() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.r.UnregisterIO(s.fd)
}

// Closed reports whether Disconnect/Deregister has already run.
func (s *StreamIO) Closed() bool { return s.closed }
