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

package socket

import "github.com/flowio/flowio/endpoint"

// OpenUDP opens and binds a UDP datagram socket. A zero-port endpoint
// binds to an ephemeral port, as used by outbound-only clients.
func OpenUDP(ep endpoint.Endpoint) (*Socket, error) {
	family := ep.Family()
	if family == endpoint.Unspecified {
		family = endpoint.IPv4
	}
	s, err := Open(family, Datagram)
	if err != nil {
		return nil, err
	}
	if err := s.Bind(ep); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// ConnectUDP opens a UDP socket and connects it to a single peer, fixing
// the destination so Read/Write (rather than ReadFrom/WriteTo) can be
// used, matching how the original treats a "connected" datagram socket as
// a stream-shaped transport.
func ConnectUDP(ep endpoint.Endpoint) (*Socket, error) {
	family := ep.Family()
	if family == endpoint.Unspecified {
		family = endpoint.IPv4
	}
	s, err := Open(family, Datagram)
	if err != nil {
		return nil, err
	}
	if err := s.Connect(ep); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
