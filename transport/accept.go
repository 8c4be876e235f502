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

package transport

import (
	"github.com/flowio/flowio/endpoint"
	"github.com/flowio/flowio/socket"
)

// Accept wraps a passive listening socket as the transport an acceptor
// I/O component drives: its "read" is accepting one pending connection
// rather than pulling bytes, holding the result until the caller takes
// it (mirrors the original's transport::accept buffering exactly one
// accepted socket between read() and flush()).
type Accept struct {
	listener *socket.Listener
	accepted *socket.Socket
	peer     endpoint.Endpoint
}

// NewAccept wraps a non-blocking, listening socket.
func NewAccept(ln *socket.Listener) *Accept {
	return &Accept{listener: ln}
}

// Listener returns the underlying Listener.
func (a *Accept) Listener() *socket.Listener { return a.listener }

// Poll attempts to accept one pending connection, stashing it for Take.
// Returns true if a connection is now held.
func (a *Accept) Poll() bool {
	if a.accepted != nil {
		return true
	}
	s, peer, class, err := a.listener.AcceptOne()
	if err != nil || class != socket.ClassNone {
		return false
	}
	a.accepted = s
	a.peer = peer
	return true
}

// Take hands off the held socket and its peer endpoint, clearing the
// held state so the next Poll can accept a new one.
func (a *Accept) Take() (*socket.Socket, endpoint.Endpoint) {
	s, peer := a.accepted, a.peer
	a.accepted = nil
	a.peer = endpoint.Endpoint{}
	return s, peer
}

// Close closes the listener and, if one is held but was never taken,
// the pending accepted socket too.
func (a *Accept) Close() error {
	if a.accepted != nil {
		a.accepted.Close()
		a.accepted = nil
	}
	return a.listener.Close()
}
