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

package protocol

import "bytes"

// ByteDelimited frames messages terminated by a single byte (e.g. '\n').
// The search resumes from the offset it left off at on a short read,
// rather than re-scanning bytes already known not to contain the
// delimiter.
type ByteDelimited struct {
	status
	End    byte
	onMsg  func([]byte)
	offset int
}

// NewByteDelimited builds a protocol that frames on end, calling onMsg
// once per complete message with end trimmed off.
func NewByteDelimited(end byte, onMsg func([]byte)) *ByteDelimited {
	return &ByteDelimited{status: newStatus(), End: end, onMsg: onMsg}
}

func (p *ByteDelimited) MessageSize(in []byte) int {
	idx := bytes.IndexByte(in[p.offset:], p.End)
	if idx < 0 {
		p.offset = len(in)
		return 0
	}
	size := p.offset + idx + 1
	p.offset = 0
	return size
}

// OnMessage strips the trailing delimiter byte before handing the payload
// to onMsg, matching spec.md §4.5's "a view of bytes [0, size-1)" and the
// original's shiftSize() (size - delimiter_size).
func (p *ByteDelimited) OnMessage(msg []byte) { p.onMsg(msg[:len(msg)-1]) }
func (p *ByteDelimited) Reset()               { p.offset = 0 }

// BytesDelimited frames messages terminated by a multi-byte sequence
// (e.g. "\r\n").
type BytesDelimited struct {
	status
	End    []byte
	onMsg  func([]byte)
	offset int
}

// NewBytesDelimited builds a protocol that frames on the byte sequence
// end. end must be non-empty.
func NewBytesDelimited(end []byte, onMsg func([]byte)) *BytesDelimited {
	return &BytesDelimited{status: newStatus(), End: end, onMsg: onMsg}
}

func (p *BytesDelimited) MessageSize(in []byte) int {
	if len(in)-p.offset < len(p.End) {
		return 0
	}
	idx := bytes.Index(in[p.offset:], p.End)
	if idx < 0 {
		// Keep searching from a point that still allows a delimiter
		// straddling the boundary on the next call.
		keepBack := len(p.End) - 1
		if len(in)-keepBack > p.offset {
			p.offset = len(in) - keepBack
		}
		return 0
	}
	size := p.offset + idx + len(p.End)
	p.offset = 0
	return size
}

// OnMessage strips the trailing multi-byte delimiter before handing the
// payload to onMsg, matching spec.md §4.5 and ByteDelimited's behavior.
func (p *BytesDelimited) OnMessage(msg []byte) { p.onMsg(msg[:len(msg)-len(p.End)]) }
func (p *BytesDelimited) Reset()               { p.offset = 0 }
