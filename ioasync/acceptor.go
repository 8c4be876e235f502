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
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/flowio/flowio/endpoint"
	"github.com/flowio/flowio/protocol"
	"github.com/flowio/flowio/reactor"
	"github.com/flowio/flowio/socket"
)

// AcceptTransport is what Acceptor needs: transport.Accept satisfies it
// directly.
type AcceptTransport interface {
	Listener() *socket.Listener
	Poll() bool
	Take() (*socket.Socket, endpoint.Endpoint)
	Close() error
}

// Acceptor is the degenerate input-only I/O component from spec.md §4.8:
// its "message" is a newly accepted socket, handed to onAccept. Unlike
// StreamIO it never arms write-readiness and has no user-level Protocol
// swap; its framing is always protocol.Accept.
type Acceptor struct {
	r        *reactor.Reactor
	t        AcceptTransport
	proto    *protocol.Accept
	fd       int
	closed   bool

	onDisconnected func(err error)
}

// NewAcceptor registers t with r. onAccept is called once per accepted
// connection; onDisconnected is called if the listener itself fails —
// if nil, the default per spec.md §7 is to panic ("a listener losing
// its socket is unrecoverable").
func NewAcceptor(r *reactor.Reactor, t AcceptTransport, onAccept func(*socket.Socket, endpoint.Endpoint), onDisconnected func(err error)) (*Acceptor, error) {
	a := &Acceptor{r: r, t: t, fd: t.Listener().FD(), onDisconnected: onDisconnected}
	a.proto = protocol.NewAccept(t.Poll, func() {
		s, peer := t.Take()
		onAccept(s, peer)
	})
	if err := r.RegisterIO(a.fd, unix.EPOLLIN, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Invoke drains every pending connection in this readiness batch: each
// protocol.Accept.MessageSize/OnMessage round-trip accepts and hands off
// exactly one, and AcceptOne's own ClassWouldBlock ends the loop.
func (a *Acceptor) Invoke(mask uint32) {
	if a.closed {
		return
	}
	if mask&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		a.fail(errHup)
		return
	}
	for a.proto.MessageSize(nil) > 0 {
		a.proto.OnMessage(nil)
	}
}

func (a *Acceptor) fail(err error) {
	a.Close()
	if a.onDisconnected != nil {
		a.onDisconnected(err)
		return
	}
	panic(errors.Wrap(err, "ioasync: acceptor lost its listener"))
}

// Close deregisters and closes the listening transport. Idempotent.
func (a *Acceptor) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.r.UnregisterIO(a.fd)
	return a.t.Close()
}
