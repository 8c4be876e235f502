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
	"github.com/flowio/flowio/socket"
)

// TCP is the stream transport specialized for TCP sockets: identical to
// Stream, the original's transport::tcp is just stream<tcp::socket>
// with no overrides of its own.
type TCP struct {
	*Stream
}

// DialTCP connects and wraps a new TCP transport.
func DialTCP(ep endpoint.Endpoint) (*TCP, error) {
	s, err := socket.DialTCP(ep)
	if err != nil {
		return nil, err
	}
	if err := s.SetNoDelay(true); err != nil {
		s.Close()
		return nil, err
	}
	return &TCP{Stream: NewStream(s)}, nil
}

// NewTCP wraps an already-connected TCP socket (e.g. from Listener.Accept).
func NewTCP(s *socket.Socket) *TCP {
	return &TCP{Stream: NewStream(s)}
}

// Unix is the stream transport specialized for Unix domain sockets.
type Unix struct {
	*Stream
}

// DialUnix connects and wraps a new Unix transport.
func DialUnix(path string) (*Unix, error) {
	s, err := socket.DialUnix(path)
	if err != nil {
		return nil, err
	}
	return &Unix{Stream: NewStream(s)}, nil
}

// NewUnix wraps an already-connected Unix socket.
func NewUnix(s *socket.Socket) *Unix {
	return &Unix{Stream: NewStream(s)}
}
