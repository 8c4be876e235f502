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
	"github.com/flowio/flowio/pipe"
	"github.com/flowio/flowio/socket"
)

const readChunk = 8192

// Stream wears the same method set as transport.Stream (Socket/In/Out/
// Read/Write/Publish/Flush/EOF/Close) so ioasync.StreamIO can drive a
// TLS-overlaid connection exactly like a plain one, once session.Server
// has run the blocking handshake (see Socket.Handshake) and constructed
// this Stream for the now-Established session. Kept as its own type
// rather than folded into transport.Stream because its Read must also
// drain bytes crypto/tls already decrypted into its own internal buffer —
// spec.md §4.4's SSL_pending requirement.
type Stream struct {
	tls *Socket
	in  *pipe.Pipe
	out *pipe.Pipe
}

// NewStream wraps a handshake-complete tlsio.Socket. Both pipes borrow their
// backing array from pipe's shared pool, matching transport.Stream.
func NewStream(t *Socket) *Stream {
	return &Stream{tls: t, in: pipe.Borrow(readChunk), out: pipe.Borrow(readChunk)}
}

// TLS returns the underlying TLS socket, for Inspect calls.
func (s *Stream) TLS() *Socket { return s.tls }

// Socket returns the plain socket beneath the TLS overlay, for fd
// registration with the reactor (TLS is a userspace decrypt/encrypt
// layer; the reactor still multiplexes on the raw network fd).
func (s *Stream) Socket() *socket.Socket { return s.tls.Raw() }

func (s *Stream) In() *pipe.Pipe  { return s.in }
func (s *Stream) Out() *pipe.Pipe { return s.out }

// Read pulls one chunk of decrypted application data into the input
// buffer. After the first syscall-backed read, it loops reading again
// (without returning to the reactor) as long as a read fills the whole
// readChunk with no error, and stops at the first short read, since that
// second call is really just draining bytes
// crypto/tls already decrypted from a record the first read pulled in
// whole — the same "read again because SSL_pending() > 0" requirement
// spec.md §4.4 and §8 (TLS boundary behavior) describe, adapted because
// crypto/tls doesn't expose a pending-count to check before looping.
func (s *Stream) Read() (int, socket.Class, error) {
	total := 0
	for {
		buf := s.in.AllocateBack(readChunk)
		n, class, err := s.tls.Read(buf)
		if n < readChunk {
			s.in.FreeBack(readChunk - n)
		}
		total += n
		if err != nil || n == 0 {
			if total > 0 {
				return total, socket.ClassNone, nil
			}
			return 0, class, err
		}
		if n < readChunk {
			// Short read: the next call would very likely block, so
			// stop here rather than spin; the reactor will notify again
			// if more ciphertext is already on the wire.
			return total, socket.ClassNone, nil
		}
	}
}

// Write drains as much of the output buffer as the TLS session accepts.
func (s *Stream) Write() (int, socket.Class, error) {
	if s.out.Size() == 0 {
		return 0, socket.ClassNone, nil
	}
	n, class, err := s.tls.Write(s.out.Begin())
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

// Flush drops size processed bytes from the front of the input buffer.
func (s *Stream) Flush(size int) {
	s.in.FreeFront(size)
}

// EOF mirrors transport.Stream.EOF.
func (s *Stream) EOF() {
	if s.in.Size() == 0 {
		s.in.Reset()
	} else {
		s.in.Reorder()
	}
}

// Close shuts down the TLS session (sending close_notify when possible)
// and releases the buffers and raw socket.
func (s *Stream) Close() error {
	shutdownErr := s.tls.Shutdown()
	s.in.Release()
	s.out.Release()
	if closeErr := s.tls.Raw().Close(); closeErr != nil {
		return closeErr
	}
	return shutdownErr
}
