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

	"github.com/flowio/flowio/endpoint"
	"github.com/flowio/flowio/reactor"
	"github.com/flowio/flowio/socket"
	"github.com/flowio/flowio/transport"
)

// Datagram drives a transport.UDP directly, with no framing Protocol and
// no Session/Map entry per peer — SPEC_FULL.md §E resolves spec.md §9's
// UDP Open Question this way: UDP stays datagram-oriented per socket,
// each Read() delivering exactly one whole datagram to OnDatagram rather
// than being threaded through the byte-stream Protocol contract.
type Datagram struct {
	r    *reactor.Reactor
	t    *transport.UDP
	fd   int
	closed bool

	OnDatagram     func(data []byte, from endpoint.Endpoint)
	OnDisconnected func(err error)
}

// NewDatagram registers t for read-readiness and returns the running host.
func NewDatagram(r *reactor.Reactor, t *transport.UDP, onDatagram func([]byte, endpoint.Endpoint)) (*Datagram, error) {
	d := &Datagram{r: r, t: t, fd: t.Socket().FD(), OnDatagram: onDatagram}
	if err := r.RegisterIO(d.fd, unix.EPOLLIN, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Publish queues a datagram to the transport's current default
// destination and arms write-readiness.
func (d *Datagram) Publish(data []byte) {
	d.t.Publish(data)
	d.armWrite()
}

// PublishTo queues a datagram to an explicit destination.
func (d *Datagram) PublishTo(to endpoint.Endpoint, data []byte) {
	d.t.PublishTo(to, data)
	d.armWrite()
}

func (d *Datagram) armWrite() {
	if d.closed {
		return
	}
	d.r.ModifyIO(d.fd, unix.EPOLLIN|unix.EPOLLOUT)
}

// Invoke handles both datagram arrival and queued-send draining.
func (d *Datagram) Invoke(mask uint32) {
	if d.closed {
		return
	}
	if mask&unix.EPOLLIN != 0 {
		d.handleRead()
	}
	if d.closed {
		return
	}
	if mask&unix.EPOLLOUT != 0 {
		d.handleWrite()
	}
}

func (d *Datagram) handleRead() {
	for {
		n, from, err := d.t.Read()
		if err != nil {
			class := socket.Classify(err)
			if class == socket.ClassWouldBlock || class == socket.ClassInterrupted {
				return
			}
			d.Disconnect(err)
			return
		}
		if d.OnDatagram != nil {
			buf := make([]byte, n)
			copy(buf, d.t.In().Begin())
			d.OnDatagram(buf, from)
		}
	}
}

func (d *Datagram) handleWrite() {
	if d.t.PendingWrite() == 0 {
		d.r.ModifyIO(d.fd, unix.EPOLLIN)
		return
	}
	_, class, err := d.t.Write()
	if err != nil && class != socket.ClassWouldBlock && class != socket.ClassInterrupted {
		d.Disconnect(err)
		return
	}
	if d.t.PendingWrite() == 0 {
		d.r.ModifyIO(d.fd, unix.EPOLLIN)
	}
}

// Disconnect tears down the socket registration. Idempotent.
func (d *Datagram) Disconnect(err error) {
	if d.closed {
		return
	}
	d.closed = true
	d.r.UnregisterIO(d.fd)
	d.t.Close()
	if d.OnDisconnected != nil {
		d.OnDisconnected(err)
	}
}
