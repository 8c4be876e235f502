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
	"errors"

	"golang.org/x/sys/unix"
)

// Class is the socket-layer failure taxonomy from spec.md §4.2: every
// syscall error a Socket can return is bucketed into one of these, so
// callers (the reactor's I/O components) can decide whether to re-arm,
// retry, or disconnect without inspecting errno themselves.
type Class int

const (
	// ClassNone means the call succeeded.
	ClassNone Class = iota
	// ClassWouldBlock is transient: re-register for readiness and wait.
	ClassWouldBlock
	// ClassInterrupted is transient: retry the call immediately.
	ClassInterrupted
	// ClassPeerClosed covers ECONNRESET/ECONNABORTED/ENOTCONN: the remote
	// end is gone, surface as a disconnection.
	ClassPeerClosed
	// ClassInProgress is returned by a non-blocking connect that has not
	// completed yet; the caller waits for write-readiness and checks
	// SO_ERROR.
	ClassInProgress
	// ClassOther is fatal for this socket: close it.
	ClassOther
)

// Classify buckets a syscall error (as returned by golang.org/x/sys/unix
// calls, which surface unix.Errno directly) into the failure taxonomy.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return ClassOther
	}
	switch errno {
	case unix.EAGAIN, unix.EWOULDBLOCK:
		return ClassWouldBlock
	case unix.EINTR:
		return ClassInterrupted
	case unix.ECONNRESET, unix.ECONNABORTED, unix.ENOTCONN, unix.EPIPE:
		return ClassPeerClosed
	case unix.EINPROGRESS, unix.EALREADY:
		return ClassInProgress
	default:
		return ClassOther
	}
}
