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

// Package protocol defines the message-framing contract async I/O
// components drive, and the stock codecs (byte/multi-byte delimiter,
// length-prefixed, accept, handshake) built on it.
package protocol

// Protocol is the framing contract every codec implements. A host I/O
// component calls MessageSize in a loop after each read, passing it
// OnMessage for each complete frame found, then Flush-es those bytes out
// of its input buffer. Reset clears any partial-parse state (used after
// errors, disconnects, or protocol switches); Ok/MarkFailed track whether
// the protocol has entered a permanently invalid state.
type Protocol interface {
	// MessageSize inspects the current input without consuming it and
	// returns the byte length of the next complete message, or 0 if
	// more data is needed.
	MessageSize(in []byte) int

	// OnMessage is called once MessageSize has returned a non-zero
	// size; it receives exactly that many bytes of raw framed input
	// (headers/delimiters included) and is responsible for stripping
	// framing overhead before dispatching the payload to the host.
	OnMessage(msg []byte)

	// Reset clears partial-parse state, preparing for a fresh message.
	Reset()

	// Ok reports whether the protocol is still in a valid state.
	Ok() bool

	// MarkFailed transitions the protocol into a permanently invalid
	// state; Ok returns false from then on.
	MarkFailed()

	// ShouldFlush reports whether the host should drop the consumed
	// bytes from its input buffer after OnMessage returns. Protocols
	// that need to re-inspect already-seen bytes (rare) can say no.
	ShouldFlush() bool
}

// status is embedded by every concrete protocol for the shared
// ok/mark-failed/should-flush bookkeeping the original's AProtocol base
// class carries alongside the pure-virtual framing methods.
type status struct {
	ok          bool
	shouldFlush bool
}

func newStatus() status {
	return status{ok: true, shouldFlush: true}
}

func (s *status) Ok() bool          { return s.ok }
func (s *status) MarkFailed()       { s.ok = false }
func (s *status) ShouldFlush() bool { return s.shouldFlush }

// Dispatch drives a Protocol to exhaustion against in, the full currently
// buffered input: it repeatedly asks for the next message size, invokes
// OnMessage, and reports how many bytes the host should flush and
// whether any message was produced. This is the same size/consume loop
// every I/O component's read path runs, factored out so it isn't
// duplicated across protocol implementations' callers.
func Dispatch(p Protocol, in []byte) (consumed int, messages int) {
	for {
		n := p.MessageSize(in[consumed:])
		if n <= 0 {
			return consumed, messages
		}
		if n > len(in)-consumed {
			// Protocol reported more than is available; treat as "not
			// ready yet" rather than over-reading.
			return consumed, messages
		}
		p.OnMessage(in[consumed : consumed+n])
		messages++
		if p.ShouldFlush() {
			consumed += n
		}
	}
}
