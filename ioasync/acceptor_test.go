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

func TestAcceptorDeliversOneConnectionPerConnect(t *testing.T) {
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	raw, err := socket.ListenTCP(loopbackEphemeral(), 0)
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	ln, err := socket.NewListener(raw)
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	local, err := ln.LocalEndpoint()
	if err != nil {
		t.Fatalf("LocalEndpoint: %v", err)
	}

	accepted := make(chan *socket.Socket, 4)
	acc, err := NewAcceptor(r, transport.NewAccept(ln), func(s *socket.Socket, _ endpoint.Endpoint) {
		accepted <- s
	}, nil)
	if err != nil {
		t.Fatalf("NewAcceptor: %v", err)
	}
	defer acc.Close()

	client, err := socket.DialTCP(local)
	if err != nil {
		t.Fatalf("DialTCP: %v", err)
	}
	defer client.Close()

	runUntil(t, r, func() bool {
		select {
		case s := <-accepted:
			s.Close()
			return true
		default:
			return false
		}
	})
}

func TestAcceptorFailureDefaultsToPanicWhenNoHandler(t *testing.T) {
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	raw, err := socket.ListenTCP(loopbackEphemeral(), 0)
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	ln, err := socket.NewListener(raw)
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}

	acc, err := NewAcceptor(r, transport.NewAccept(ln), func(*socket.Socket, endpoint.Endpoint) {}, nil)
	if err != nil {
		t.Fatalf("NewAcceptor: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected fail() to panic when onDisconnected is nil")
		}
	}()
	acc.fail(errHup)
}
