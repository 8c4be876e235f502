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

// Listener is a passive Socket set non-blocking, the shape the reactor's
// accept-transport drives: repeated AcceptOne calls per readiness
// notification, draining until ClassWouldBlock so a burst of simultaneous connects
// doesn't wait for extra event-loop turns.
type Listener struct {
	*Socket
}

// NewListener wraps an already-bound, listening Socket and arms
// non-blocking mode on it.
func NewListener(s *Socket) (*Listener, error) {
	if err := s.SetNonblocking(true); err != nil {
		return nil, err
	}
	return &Listener{Socket: s}, nil
}

// AcceptOne accepts a single pending connection. Class is ClassWouldBlock
// when nothing is pending (not an error condition for the caller's
// purposes), ClassInterrupted when the accept was interrupted and should
// be retried, or ClassOther for any other failure.
func (l *Listener) AcceptOne() (*Socket, endpoint.Endpoint, Class, error) {
	s, ep, err := l.Socket.Accept()
	if err != nil {
		return nil, endpoint.Endpoint{}, Classify(err), err
	}
	return s, ep, ClassNone, nil
}

// DrainAccepts repeatedly calls AcceptOne, invoking fn for each accepted
// connection, until the listener reports ClassWouldBlock or a fatal
// error. It returns the fatal error, if any; ClassWouldBlock is not
// treated as an error.
func (l *Listener) DrainAccepts(fn func(*Socket, endpoint.Endpoint)) error {
	for {
		s, ep, class, err := l.AcceptOne()
		switch class {
		case ClassNone:
			fn(s, ep)
		case ClassWouldBlock:
			return nil
		case ClassInterrupted:
			continue
		default:
			return err
		}
	}
}
