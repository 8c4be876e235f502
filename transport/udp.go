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
	"github.com/flowio/flowio/pipe"
	"github.com/flowio/flowio/socket"
)

// MaxDatagramSize caps a single UDP read/write, matching the original's
// io::udp::socket::MaxDatagramSize (the practical upper bound for an
// unfragmented UDP payload).
const MaxDatagramSize = 65507

// outDatagram is one queued outbound message: a destination endpoint
// plus however many bytes of it have already been sent (a single
// sendto() can legitimately send less than len(payload) if the socket
// is in non-blocking mode and the kernel buffer is momentarily full).
type outDatagram struct {
	to     endpoint.Endpoint
	offset int
	size   int
}

// UDP is the datagram transport: unlike Stream's single contiguous
// output buffer, outbound messages need to remember which destination
// each one targets, so this keeps a queue of (endpoint, length) headers
// alongside the shared output Pipe holding their payload bytes back to
// back.
type UDP struct {
	sock *socket.Socket
	in   *pipe.Pipe
	out  *pipe.Pipe

	lastSource endpoint.Endpoint
	dest       endpoint.Endpoint
	queue      []outDatagram
}

// NewUDP wraps an already-open UDP socket. in borrows a pool bucket
// sized to one full datagram since Read always wants the whole
// MaxDatagramSize allocation up front; out borrows the same size class
// Stream does.
func NewUDP(s *socket.Socket) *UDP {
	return &UDP{sock: s, in: pipe.Borrow(MaxDatagramSize), out: pipe.Borrow(readChunk)}
}

// OpenUDP opens, binds and wraps a new UDP transport.
func OpenUDP(ep endpoint.Endpoint) (*UDP, error) {
	s, err := socket.OpenUDP(ep)
	if err != nil {
		return nil, err
	}
	return NewUDP(s), nil
}

// Socket returns the underlying raw socket.
func (u *UDP) Socket() *socket.Socket { return u.sock }

// In returns the input buffer; after a successful Read, it holds exactly
// one datagram's payload (has_reset_on_pending_read in the original: the
// buffer is fully reset between datagrams, never accumulated across
// reads the way a byte stream is).
func (u *UDP) In() *pipe.Pipe { return u.in }

// Source reports the sender of the most recently read datagram.
func (u *UDP) Source() endpoint.Endpoint { return u.lastSource }

// SetDestination sets the endpoint subsequent Publish calls (not
// PublishTo) address, until the next successful Read replaces it.
func (u *UDP) SetDestination(to endpoint.Endpoint) { u.dest = to }

// Read receives one datagram into the input buffer, replacing whatever
// was there before, and records its sender as both Source() and the
// default reply destination, replacing any destination SetDestination set.
func (u *UDP) Read() (int, endpoint.Endpoint, error) {
	u.in.Reset()
	buf := u.in.AllocateBack(MaxDatagramSize)
	n, from, err := u.sock.ReadFrom(buf)
	u.in.FreeBack(MaxDatagramSize - n)
	if err == nil {
		u.lastSource = from
		u.dest = from
	}
	return n, from, err
}

// Publish queues data for sending to the current destination (set by
// SetDestination, or by the most recently received datagram's source).
func (u *UDP) Publish(data []byte) {
	u.PublishTo(u.dest, data)
}

// PublishTo queues data for sending to an explicit destination,
// independent of the transport's default destination.
func (u *UDP) PublishTo(to endpoint.Endpoint, data []byte) {
	dst := u.out.AllocateBack(len(data))
	copy(dst, data)
	u.queue = append(u.queue, outDatagram{to: to, size: len(data)})
}

// Write sends the oldest queued datagram, or as much of it as the socket
// accepts in one call for a partially-consumed one. Returns 0, ClassNone
// when the queue is empty.
func (u *UDP) Write() (int, socket.Class, error) {
	if len(u.queue) == 0 {
		return 0, socket.ClassNone, nil
	}
	msg := &u.queue[0]
	payload := u.out.Begin()[msg.offset:msg.size]
	n := len(payload)
	if n > MaxDatagramSize {
		n = MaxDatagramSize
	}
	written, err := u.sock.WriteTo(payload[:n], msg.to)
	if err != nil {
		return 0, socket.Classify(err), err
	}
	msg.offset += written
	if msg.offset >= msg.size {
		u.out.FreeFront(msg.size)
		u.queue = u.queue[1:]
		if len(u.queue) == 0 {
			u.out.Reset()
		} else {
			u.out.Reorder()
			// Offsets in the remaining queue entries are relative to
			// the buffer start, which Reorder just shifted to 0; since
			// each entry's size is self-contained and entries are
			// consumed strictly in order, no further adjustment is
			// needed beyond having freed msg's own bytes above.
		}
	}
	return written, socket.ClassNone, nil
}

// PendingWrite reports how many datagrams (not bytes) are queued.
func (u *UDP) PendingWrite() int { return len(u.queue) }

// Close releases the buffers and socket, returning each pipe's backing
// array to the shared pool.
func (u *UDP) Close() error {
	u.in.Release()
	u.out.Release()
	return u.sock.Close()
}
