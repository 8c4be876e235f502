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

import (
	"os"

	"github.com/pkg/errors"

	"github.com/flowio/flowio/endpoint"
)

// ListenUnix opens, binds and listens on a Unix domain socket path. Any
// stale socket file left over from a previous, uncleanly-terminated
// process is removed first, matching the original's accept-transport
// setup for local sockets.
func ListenUnix(path string, backlog int) (*Socket, error) {
	if err := removeStaleSocket(path); err != nil {
		return nil, err
	}
	s, err := Open(endpoint.Unix, Stream)
	if err != nil {
		return nil, err
	}
	if err := s.Bind(endpoint.UnixEndpoint(path)); err != nil {
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

// DialUnix connects to a Unix domain socket path.
func DialUnix(path string) (*Socket, error) {
	s, err := Open(endpoint.Unix, Stream)
	if err != nil {
		return nil, err
	}
	if err := s.Connect(endpoint.UnixEndpoint(path)); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func removeStaleSocket(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "socket: stat unix path")
	}
	if err := os.Remove(path); err != nil {
		return errors.Wrap(err, "socket: remove stale unix socket")
	}
	return nil
}
