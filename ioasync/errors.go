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

import "github.com/pkg/errors"

// errHup surfaces an EPOLLHUP/EPOLLERR readiness report as the
// "disconnected, reason unknown beyond the socket layer" case.
var errHup = errors.New("ioasync: peer hangup or socket error")

// errProtocolFailed is the Disconnected reason when a Protocol's
// MarkFailed put it into a permanently invalid state, per spec.md §7's
// ProtocolError kind.
var errProtocolFailed = errors.New("ioasync: protocol marked failed")

// errFatalProtocol is the Disconnected reason for the invariant
// violation spec.md §4.5 calls a "protocol bug": MessageSize reporting
// more bytes than are actually available.
var errFatalProtocol = errors.New("ioasync: protocol reported size greater than available input")
