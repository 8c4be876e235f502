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

package session

import (
	"github.com/google/uuid"

	"github.com/flowio/flowio/endpoint"
	"github.com/flowio/flowio/ioasync"
)

// Session is a server-owned connected peer, identified by a UUID rather
// than its file descriptor (spec.md §3: "descriptors may be extracted
// and re-homed"). It composes one ioasync.Transport and the StreamIO
// driving it, plus a back-reference to the owning Server.
type Session struct {
	ID uuid.UUID

	transport ioasync.Transport
	io        *ioasync.StreamIO
	srv       *Server
}

// Server returns the owning server.
func (s *Session) Server() *Server { return s.srv }

// Publish queues data for sending on this session, arming write
// readiness as needed.
func (s *Session) Publish(data []byte) {
	if s.io != nil {
		s.io.Publish(data)
	}
}

// Disconnect tears the session down. Idempotent (spec.md §8).
func (s *Session) Disconnect() {
	if s.io != nil {
		s.io.Disconnect(nil)
	}
}

// RemoteEndpoint reports the peer address.
func (s *Session) RemoteEndpoint() (endpoint.Endpoint, error) {
	return s.transport.Socket().PeerEndpoint()
}
