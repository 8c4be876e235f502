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

// ListenTCP opens, binds and listens on a TCP endpoint, returning a
// passive Socket ready for non-blocking Accept loops. backlog<=0 uses a
// fixed backlog of 128 (unixSomaxconn).
func ListenTCP(ep endpoint.Endpoint, backlog int) (*Socket, error) {
	family := ep.Family()
	if family == endpoint.Unspecified {
		family = endpoint.IPv4
	}
	s, err := Open(family, Stream)
	if err != nil {
		return nil, err
	}
	if err := s.Bind(ep); err != nil {
		s.Close()
		return nil, err
	}
	if backlog <= 0 {
		backlog = unixSomaxconn
	}
	if err := s.Listen(backlog); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// unixSomaxconn mirrors the kernel default backlog used when the caller
// doesn't care to tune it (Linux's SOMAXCONN historically 128).
const unixSomaxconn = 128

// DialTCP opens a TCP socket and connects it (blocking).
func DialTCP(ep endpoint.Endpoint) (*Socket, error) {
	family := ep.Family()
	if family == endpoint.Unspecified {
		family = endpoint.IPv4
	}
	s, err := Open(family, Stream)
	if err != nil {
		return nil, err
	}
	if err := s.Connect(ep); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// DialTCPNonblocking opens a TCP socket and starts a non-blocking connect,
// per spec.md §4.2's n_connect. Returns the socket plus the Class reported
// by the connect attempt (ClassNone if it completed immediately, in
// which case the caller does not need to wait for write-readiness).
func DialTCPNonblocking(ep endpoint.Endpoint) (*Socket, Class, error) {
	family := ep.Family()
	if family == endpoint.Unspecified {
		family = endpoint.IPv4
	}
	s, err := Open(family, Stream)
	if err != nil {
		return nil, ClassOther, err
	}
	class, err := s.NonblockingConnect(ep)
	if err != nil {
		s.Close()
		return nil, class, err
	}
	return s, class, nil
}
