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

import (
	"encoding/binary"

	"github.com/golang/snappy"
)

// SnappyBlock decorates an inner Protocol with snappy block
// decompression. transport.Snappy's Publish frames each write as
// [4-byte BE length][compressed block]; SnappyBlock is its read-side
// counterpart: MessageSize recognizes one framed block at a time,
// OnMessage decompresses it and feeds the plaintext bytes into inner's
// own Dispatch loop, so any framing protocol (byte-delimited,
// length-prefixed, ...) runs transparently over a compressed
// connection without knowing compression is involved.
type SnappyBlock struct {
	status
	inner Protocol
	buf   []byte
}

// NewSnappyBlock wraps inner, the protocol that frames the decompressed
// byte stream.
func NewSnappyBlock(inner Protocol) *SnappyBlock {
	return &SnappyBlock{status: newStatus(), inner: inner}
}

func (p *SnappyBlock) MessageSize(in []byte) int {
	if len(in) < 4 {
		return 0
	}
	blockLen := int(binary.BigEndian.Uint32(in))
	total := 4 + blockLen
	if len(in) < total {
		return 0
	}
	return total
}

// OnMessage decompresses the framed block and runs inner's Dispatch loop
// over the accumulated plaintext, since a decompressed block's boundary
// need not line up with inner's own message boundaries.
func (p *SnappyBlock) OnMessage(msg []byte) {
	payload, err := snappy.Decode(nil, msg[4:])
	if err != nil {
		p.MarkFailed()
		return
	}
	p.buf = append(p.buf, payload...)
	consumed, _ := Dispatch(p.inner, p.buf)
	if consumed > 0 {
		p.buf = append(p.buf[:0], p.buf[consumed:]...)
	}
	if !p.inner.Ok() {
		p.MarkFailed()
	}
}

func (p *SnappyBlock) Reset() {
	p.buf = p.buf[:0]
	p.inner.Reset()
}
