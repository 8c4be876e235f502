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
	"net"
	"testing"
	"time"

	"github.com/flowio/flowio/endpoint"
	"github.com/flowio/flowio/protocol"
	"github.com/flowio/flowio/reactor"
	"github.com/flowio/flowio/socket"
	"github.com/flowio/flowio/transport"
)

func loopbackEphemeral() endpoint.Endpoint {
	return endpoint.IPv4Endpoint(net.IPv4(127, 0, 0, 1), 0)
}

// pair returns two non-blocking, connected TCP transports wired to the
// given reactor, the shape session.Server hands to StreamIO.
func pair(t *testing.T, r *reactor.Reactor) (serverT, clientT *transport.TCP) {
	t.Helper()
	ln, err := socket.ListenTCP(loopbackEphemeral(), 0)
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer ln.Close()
	local, err := ln.LocalEndpoint()
	if err != nil {
		t.Fatalf("LocalEndpoint: %v", err)
	}

	client, err := socket.DialTCP(local)
	if err != nil {
		t.Fatalf("DialTCP: %v", err)
	}
	server, _, err := ln.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if err := client.SetNonblocking(true); err != nil {
		t.Fatalf("client SetNonblocking: %v", err)
	}
	if err := server.SetNonblocking(true); err != nil {
		t.Fatalf("server SetNonblocking: %v", err)
	}

	return transport.NewTCP(server), transport.NewTCP(client)
}

func runUntil(t *testing.T, r *reactor.Reactor, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if err := r.Run(reactor.RunDefault); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if done() {
			return
		}
	}
	t.Fatal("condition never became true within 1s")
}

func TestStreamIODeliversLengthPrefixedMessage(t *testing.T) {
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	serverT, clientT := pair(t, r)

	var received []byte
	serverProto := protocol.NewLengthPrefixed(protocol.Header4, func(msg []byte) {
		received = append([]byte(nil), msg...)
	})

	serverIO, err := NewStream(r, serverT, serverProto, Events{})
	if err != nil {
		t.Fatalf("NewStream server: %v", err)
	}
	defer serverIO.Disconnect(nil)

	clientProto := protocol.NewLengthPrefixed(protocol.Header4, func([]byte) {})
	clientIO, err := NewStream(r, clientT, clientProto, Events{})
	if err != nil {
		t.Fatalf("NewStream client: %v", err)
	}
	defer clientIO.Disconnect(nil)

	clientIO.Publish(protocol.EncodeLengthPrefixed(protocol.Header4, []byte("ping")))

	runUntil(t, r, func() bool { return received != nil })

	if string(received) != "ping" {
		t.Fatalf("received %q, want %q", received, "ping")
	}
}

func TestStreamIOOnDisconnectedFiresOnPeerClose(t *testing.T) {
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	serverT, clientT := pair(t, r)

	disconnected := make(chan error, 1)
	serverProto := protocol.NewLengthPrefixed(protocol.Header4, func([]byte) {})
	serverIO, err := NewStream(r, serverT, serverProto, Events{
		OnDisconnected: func(err error) { disconnected <- err },
	})
	if err != nil {
		t.Fatalf("NewStream server: %v", err)
	}
	defer func() {
		if !serverIO.Closed() {
			serverIO.Disconnect(nil)
		}
	}()

	clientT.Close()

	runUntil(t, r, func() bool {
		select {
		case <-disconnected:
			return true
		default:
			return false
		}
	})
}

func TestStreamIOFatalProtocolDisconnects(t *testing.T) {
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	serverT, clientT := pair(t, r)
	defer clientT.Close()

	disconnected := make(chan error, 1)
	serverIO, err := NewStream(r, serverT, &oversizeProtocol{}, Events{
		OnDisconnected: func(err error) { disconnected <- err },
	})
	if err != nil {
		t.Fatalf("NewStream server: %v", err)
	}
	defer func() {
		if !serverIO.Closed() {
			serverIO.Disconnect(nil)
		}
	}()

	if _, _, err := clientT.Socket().Write([]byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	runUntil(t, r, func() bool {
		select {
		case <-disconnected:
			return true
		default:
			return false
		}
	})
}

// oversizeProtocol is a fixture exercising the host's own fatal-protocol
// guard: it reports wanting more bytes than are actually buffered, which
// handleRead must treat as a bug rather than "need more data".
type oversizeProtocol struct{}

func (p *oversizeProtocol) MessageSize(in []byte) int { return len(in) + 1024 }
func (p *oversizeProtocol) OnMessage([]byte)          {}
func (p *oversizeProtocol) Reset()                    {}
func (p *oversizeProtocol) Ok() bool                  { return true }
func (p *oversizeProtocol) MarkFailed()               {}
func (p *oversizeProtocol) ShouldFlush() bool         { return true }
