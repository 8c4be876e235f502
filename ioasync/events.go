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

// Package ioasync provides the reactor-driven async I/O bases spec.md
// §4.6 describes: a host for one Protocol plus one Transport, wired to
// the thread-local Reactor, running the read/write loops and firing the
// typed events §7 lists (eof, eos, disconnected, pending_read,
// pending_write, dispose). The CRTP "_Derived" dispatch the original
// uses to call typed handlers without virtual calls is replaced here
// with a plain struct of closures (Events) — spec.md §9's "Design
// Notes" calls this out directly as the preferred idiomatic-Go
// replacement for the template pattern, since framing dispatch itself
// stays monomorphic through the Protocol interface and only the coarse
// lifecycle events are late-bound.
package ioasync

// Events are the typed callbacks a host fires. Any field left nil is
// simply not invoked — matching spec.md §7's "a handler may be absent;
// the default is to ignore" rule (the one exception, acceptor
// disconnection defaulting to panic, is implemented in the Acceptor
// type itself since it isn't a StreamIO/Datagram event).
type Events struct {
	// OnEOF fires when a read returns zero bytes: the peer may still be
	// writable.
	OnEOF func()

	// OnDisconnected fires once, on any terminal transport error or an
	// explicit Disconnect call. err is nil for a graceful close.
	OnDisconnected func(err error)

	// OnEOS fires when the output buffer fully drains after a write.
	OnEOS func()

	// OnPendingRead fires on the transition into "unprocessed bytes
	// remain in the input buffer after a full dispatch pass" — not
	// every turn — resolving the spec.md §9 Open Question the way
	// SPEC_FULL.md §E documents.
	OnPendingRead func(bytes int)

	// OnPendingWrite fires on the same kind of transition for the
	// output buffer after a write call that didn't fully drain it.
	OnPendingWrite func(bytes int)

	// OnDispose fires after OnDisconnected, once the host has torn
	// down its reactor registration and transport.
	OnDispose func()
}
