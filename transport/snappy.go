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
	"encoding/binary"

	"github.com/golang/snappy"
)

// Snappy decorates a Stream with per-message compression: each Publish
// call is snappy-compressed as one block and framed with a 4-byte
// length header before reaching the underlying Stream's output buffer.
// This is a block encoder, not the io.Reader/io.Writer-based
// snappy.Reader/Writer pair the teacher's bespoke net.Conn wrapper
// used — those assume a blocking stream to pump, which the
// non-blocking reactor's Read/Write calls don't provide. The read side
// of this same wire framing is protocol.SnappyBlock, which decompresses
// each block and drives an inner Protocol over the plaintext; pairing
// Snappy (write) with protocol.SnappyBlock (read) is what
// session.WithSnappy wires up.
type Snappy struct {
	*Stream
}

// NewSnappy decorates an existing Stream.
func NewSnappy(s *Stream) *Snappy {
	return &Snappy{Stream: s}
}

// Publish compresses data and queues the framed, compressed block for
// writing, replacing Stream's raw Publish.
func (s *Snappy) Publish(data []byte) {
	compressed := snappy.Encode(nil, data)
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(compressed)))
	s.Stream.Publish(header)
	s.Stream.Publish(compressed)
}
