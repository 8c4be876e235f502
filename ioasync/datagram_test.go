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
	"testing"

	"github.com/flowio/flowio/endpoint"
	"github.com/flowio/flowio/reactor"
	"github.com/flowio/flowio/socket"
	"github.com/flowio/flowio/transport"
)

func openUDP(t *testing.T) *transport.UDP {
	t.Helper()
	s, err := socket.OpenUDP(loopbackEphemeral())
	if err != nil {
		t.Fatalf("OpenUDP: %v", err)
	}
	if err := s.SetNonblocking(true); err != nil {
		t.Fatalf("SetNonblocking: %v", err)
	}
	return transport.NewUDP(s)
}

func TestDatagramRoundTrip(t *testing.T) {
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	serverT := openUDP(t)
	clientT := openUDP(t)

	serverLocal, err := serverT.Socket().LocalEndpoint()
	if err != nil {
		t.Fatalf("LocalEndpoint: %v", err)
	}

	var received []byte
	var from endpoint.Endpoint
	server, err := NewDatagram(r, serverT, func(data []byte, peer endpoint.Endpoint) {
		received = data
		from = peer
	})
	if err != nil {
		t.Fatalf("NewDatagram server: %v", err)
	}
	defer server.Disconnect(nil)

	client, err := NewDatagram(r, clientT, nil)
	if err != nil {
		t.Fatalf("NewDatagram client: %v", err)
	}
	defer client.Disconnect(nil)

	client.PublishTo(serverLocal, []byte("ping"))

	runUntil(t, r, func() bool { return received != nil })

	if string(received) != "ping" {
		t.Fatalf("received %q, want %q", received, "ping")
	}
	if from.Port() == 0 {
		t.Fatal("expected a non-zero source port")
	}
}
