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

import "encoding/binary"

// HeaderWidth is the byte width of a LengthPrefixed frame's size header.
type HeaderWidth int

const (
	Header1 HeaderWidth = 1
	Header2 HeaderWidth = 2
	Header4 HeaderWidth = 4
)

// LengthPrefixed frames messages as [header][payload], header being a
// network-byte-order unsigned integer giving the payload length (the
// header's own bytes are not included in the count). Width chooses the
// header's size; the zero-length-payload case (header value 0) is a
// valid, complete message on its own.
type LengthPrefixed struct {
	status
	width HeaderWidth
	onMsg func([]byte)
}

// NewLengthPrefixed builds a length-prefixed protocol with the given
// header width.
func NewLengthPrefixed(width HeaderWidth, onMsg func([]byte)) *LengthPrefixed {
	return &LengthPrefixed{status: newStatus(), width: width, onMsg: onMsg}
}

func (p *LengthPrefixed) MessageSize(in []byte) int {
	w := int(p.width)
	if len(in) < w {
		return 0
	}
	var payload int
	switch p.width {
	case Header1:
		payload = int(in[0])
	case Header2:
		payload = int(binary.BigEndian.Uint16(in))
	case Header4:
		payload = int(binary.BigEndian.Uint32(in))
	}
	total := w + payload
	if len(in) < total {
		return 0
	}
	return total
}

// OnMessage receives the full frame (header + payload); it strips the
// header itself before calling the configured handler so callers only
// ever see the payload.
func (p *LengthPrefixed) OnMessage(msg []byte) {
	p.onMsg(msg[int(p.width):])
}

func (p *LengthPrefixed) Reset() {}

// EncodeLengthPrefixed builds a ready-to-send frame (header + payload)
// for the given width. It panics if payload's length overflows width —
// a caller bug, not a runtime condition.
func EncodeLengthPrefixed(width HeaderWidth, payload []byte) []byte {
	w := int(width)
	buf := make([]byte, w+len(payload))
	switch width {
	case Header1:
		if len(payload) > 0xff {
			panic("protocol: payload too large for 1-byte header")
		}
		buf[0] = byte(len(payload))
	case Header2:
		if len(payload) > 0xffff {
			panic("protocol: payload too large for 2-byte header")
		}
		binary.BigEndian.PutUint16(buf, uint16(len(payload)))
	case Header4:
		binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	default:
		panic("protocol: unsupported header width")
	}
	copy(buf[w:], payload)
	return buf
}
