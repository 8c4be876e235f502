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

package protocol

// Accept is not a byte-framing protocol at all: it drives an acceptor's
// poll-for-a-pending-connection loop through the same MessageSize/
// OnMessage shape every other protocol uses, so the reactor's generic
// "protocol says a unit is ready" dispatch works for listeners too. Poll
// should report whether a new connection is currently pending; Take
// hands it off (and is expected to clear the pending state).
type Accept struct {
	status
	Poll func() bool
	Take func()
}

// NewAccept builds an accept protocol from a pending-check and a
// take-ownership callback.
func NewAccept(poll func() bool, take func()) *Accept {
	a := &Accept{status: newStatus()}
	a.Poll, a.Take = poll, take
	return a
}

// MessageSize ignores in entirely (an acceptor has no byte stream) and
// reports 1 when a connection is pending, 0 otherwise.
func (a *Accept) MessageSize(_ []byte) int {
	if a.Poll() {
		return 1
	}
	return 0
}

func (a *Accept) OnMessage(_ []byte) { a.Take() }
func (a *Accept) Reset()             {}

// Handshake drives any transport overlay with an asynchronous, pollable
// setup step the same way an Accept drives a listener: Step is called
// until it reports done, then Done fires once. It assumes Step is safe
// to call repeatedly after reporting false (e.g. "not ready yet") —
// crypto/tls's handshake does not have that property (see tlsio.Socket's
// doc), which is why tlsio's own setup step is driven a different way.
type Handshake struct {
	status
	Step func() bool
	done bool
	Done func()
}

// NewHandshake builds a handshake protocol. should_flush is false for
// this protocol in the original since there is no byte stream to
// consume; this port keeps that by never advancing any offset.
func NewHandshake(step func() bool, done func()) *Handshake {
	h := &Handshake{status: newStatus(), Step: step, Done: done}
	h.shouldFlush = false
	return h
}

func (h *Handshake) MessageSize(_ []byte) int {
	if h.done {
		return 0
	}
	if h.Step() {
		return 1
	}
	return 0
}

func (h *Handshake) OnMessage(_ []byte) {
	h.done = true
	h.Done()
}

func (h *Handshake) Reset() { h.done = false }
