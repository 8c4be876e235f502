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

// Package transport composes a raw socket with input/output Pipe buffers
// and exposes the uniform read/write/publish/close surface the async I/O
// layer drives. Stream is the TCP/Unix-stream shape; UDP gets its own
// datagram-queued variant in udp.go, since a stream of bytes and a
// sequence of addressed datagrams need different output buffering.
package transport

import (
	"github.com/flowio/flowio/pipe"
	"github.com/flowio/flowio/socket"
)

const readChunk = 8192

// Stream is a byte-stream transport: one socket, one input Pipe, one
// output Pipe. It implements no framing of its own — protocol.Protocol
// sits on top of In(), inspecting and consuming its contents.
type Stream struct {
	sock *socket.Socket
	in   *pipe.Pipe
	out  *pipe.Pipe
}

// NewStream wraps an already-open socket. Both pipes borrow their
// initial backing array from pipe's shared size-bucketed pool instead
// of starting from a fresh allocation, since a stream's read/write
// buffers are exactly the short-lived, power-of-two-sized churn that
// pool exists for.
func NewStream(s *socket.Socket) *Stream {
	return &Stream{sock: s, in: pipe.Borrow(readChunk), out: pipe.Borrow(readChunk)}
}

// Socket returns the underlying raw socket, for endpoint queries, option
// tuning, or handing off to an overlay like tlsio.
func (s *Stream) Socket() *socket.Socket { return s.sock }

// In returns the input buffer protocols read framed messages from.
func (s *Stream) In() *pipe.Pipe { return s.in }

// Out returns the output buffer Write drains.
func (s *Stream) Out() *pipe.Pipe { return s.out }

// PendingRead reports bytes currently buffered for reading.
func (s *Stream) PendingRead() int { return s.in.Size() }

// PendingWrite reports bytes currently queued for writing.
func (s *Stream) PendingWrite() int { return s.out.Size() }

// Read pulls one chunk from the socket into the input buffer, returning
// the byte count read (0 with ClassWouldBlock means "nothing new right
// now", not an error).
func (s *Stream) Read() (int, socket.Class, error) {
	buf := s.in.AllocateBack(readChunk)
	n, class, err := s.sock.Read(buf)
	if n < readChunk {
		s.in.FreeBack(readChunk - n)
	}
	return n, class, err
}

// Write drains as much of the output buffer as the socket accepts in one
// call, compacting what's left so a future AllocateBack doesn't grow
// unboundedly behind already-sent bytes.
func (s *Stream) Write() (int, socket.Class, error) {
	if s.out.Size() == 0 {
		return 0, socket.ClassNone, nil
	}
	n, class, err := s.sock.Write(s.out.Begin())
	if n > 0 {
		s.out.FreeFront(n)
		if s.out.Size() == 0 {
			s.out.Reset()
		} else {
			s.out.Reorder()
		}
	}
	return n, class, err
}

// Publish copies data into the output buffer for a later Write.
func (s *Stream) Publish(data []byte) {
	dst := s.out.AllocateBack(len(data))
	copy(dst, data)
}

// Flush drops size processed bytes from the front of the input buffer,
// called by the host after protocol.Dispatch consumes a message.
func (s *Stream) Flush(size int) {
	s.in.FreeFront(size)
}

// EOF is called when a read returned no new bytes: it resets the input
// buffer if empty, or compacts it (Reorder) to keep a trailing partial
// message at offset 0, matching the original's istream::eof.
func (s *Stream) EOF() {
	if s.in.Size() == 0 {
		s.in.Reset()
	} else {
		s.in.Reorder()
	}
}

// Close releases the buffers and the underlying socket. Releasing
// returns each pipe's backing array to the shared pool for reuse by the
// next stream, rather than abandoning it to the garbage collector.
func (s *Stream) Close() error {
	s.in.Release()
	s.out.Release()
	return s.sock.Close()
}
