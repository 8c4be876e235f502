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

// Package pipe implements the growable contiguous byte buffer shared by the
// read and write sides of every transport: a producer calls AllocateBack to
// reserve space at the tail, a consumer calls FreeFront to release bytes at
// the head, and the live region always occupies [head, tail) of one
// contiguous slice.
package pipe

import "sync"

// defaultChunk is the smallest backing allocation handed out by the pool,
// chosen so that a single delimiter-terminated line or TLS record fits
// without a grow.
const defaultChunk = 4096

// Pipe is a growable byte buffer with independent head and tail cursors.
// The backing array's length always equals its capacity (buf is never
// re-sliced short); head and tail index into it directly. It is not safe
// for concurrent use: a Pipe is owned by exactly one transport, mutated
// only by the reactor thread that drives it.
type Pipe struct {
	buf  []byte
	head int
	tail int
}

// New returns an empty Pipe with no pre-allocated capacity.
func New() *Pipe {
	return &Pipe{}
}

// NewSize returns an empty Pipe with at least capHint bytes of backing
// storage pre-allocated.
func NewSize(capHint int) *Pipe {
	if capHint <= 0 {
		return New()
	}
	return &Pipe{buf: make([]byte, capHint)}
}

// Size returns the number of live bytes currently held, tail - head.
func (p *Pipe) Size() int {
	return p.tail - p.head
}

// Cap returns the capacity of the backing array.
func (p *Pipe) Cap() int {
	return len(p.buf)
}

// Begin returns the live region [head, tail) as a slice sharing the Pipe's
// backing array. The slice is invalidated by the next AllocateBack that
// triggers a grow, or by Reorder/Reset.
func (p *Pipe) Begin() []byte {
	return p.buf[p.head:p.tail]
}

// At returns the live byte at offset i from head, equivalent to
// Begin()[i], without materializing the slice header's bounds twice.
func (p *Pipe) At(i int) byte {
	return p.buf[p.head+i]
}

// AllocateBack reserves n bytes at the tail and returns them as a slice for
// the caller to fill. The returned slice's address is stable until the next
// mutating call (AllocateBack, FreeBack, Reorder, Reset) that reallocates or
// moves the backing array. If the backing array lacks room, it grows
// geometrically (doubling, with a defaultChunk floor) and the live region is
// copied forward — existing pointers into the old array become stale, which
// is why callers must not straddle a grow.
func (p *Pipe) AllocateBack(n int) []byte {
	if n <= 0 {
		return p.buf[p.tail:p.tail]
	}
	p.reserve(n)
	start := p.tail
	p.tail += n
	return p.buf[start:p.tail:p.tail]
}

// reserve ensures at least n more bytes are available past tail, compacting
// (Reorder) or growing the backing array as needed.
func (p *Pipe) reserve(n int) {
	if len(p.buf)-p.tail >= n {
		return
	}
	// Compacting alone may free enough trailing room.
	if p.head > 0 && len(p.buf)-p.Size() >= n {
		p.Reorder()
		if len(p.buf)-p.tail >= n {
			return
		}
	}
	need := p.Size() + n
	newCap := len(p.buf)
	if newCap < defaultChunk {
		newCap = defaultChunk
	}
	for newCap < need {
		newCap *= 2
	}
	nb := make([]byte, newCap)
	size := copy(nb, p.buf[p.head:p.tail])
	p.buf = nb
	p.head = 0
	p.tail = size
}

// FreeFront advances the head cursor by n, releasing the first n live bytes
// without moving any bytes. 0 <= n <= Size() must hold; n outside that
// range is clamped.
func (p *Pipe) FreeFront(n int) {
	if n <= 0 {
		return
	}
	if n > p.Size() {
		n = p.Size()
	}
	p.head += n
	if p.head == p.tail {
		p.head, p.tail = 0, 0
	}
}

// FreeBack retracts the tail cursor by n, discarding the last n live bytes.
// Used after a short read to release the unused tail of a chunk handed out
// by AllocateBack. 0 <= n <= Size() must hold; n outside that range is
// clamped.
func (p *Pipe) FreeBack(n int) {
	if n <= 0 {
		return
	}
	if n > p.Size() {
		n = p.Size()
	}
	p.tail -= n
}

// Reorder relocates the live region [head, tail) to offset zero in the
// backing array, a no-op if head is already zero. Byte contents are
// preserved; addresses returned by prior AllocateBack calls are not.
func (p *Pipe) Reorder() {
	if p.head == 0 {
		return
	}
	n := copy(p.buf, p.buf[p.head:p.tail])
	p.head = 0
	p.tail = n
}

// Reset drops both cursors to zero without releasing backing capacity, so
// the Pipe can be reused for a fresh stream of bytes with no allocation.
func (p *Pipe) Reset() {
	p.head = 0
	p.tail = 0
}

// pool hands out backing arrays sized to powers of two, the same waste
// bound (never more than 50% fragmentation) a per-frame allocator gets by
// bucketing on the most-significant bit of the requested size. Pipes that
// want pooled backing storage instead of ad-hoc growth call Borrow/Release.
type pool struct {
	buckets []sync.Pool
}

// globalPool is shared by every Pipe created via Borrow, mirroring the
// single process-wide allocator pattern used for framed I/O buffers.
var globalPool = newPool()

func newPool() *pool {
	pl := &pool{buckets: make([]sync.Pool, 17)} // 1B .. 64KiB
	for i := range pl.buckets {
		size := 1 << uint(i)
		pl.buckets[i].New = func() interface{} {
			b := make([]byte, size)
			return &b
		}
	}
	return pl
}

func msb(v int) int {
	b := 0
	for v > 1 {
		v >>= 1
		b++
	}
	return b
}

func (pl *pool) get(size int) *[]byte {
	if size <= 0 || size > 65536 {
		b := make([]byte, size)
		return &b
	}
	bits := msb(size)
	if size != 1<<uint(bits) {
		bits++
	}
	if bits >= len(pl.buckets) {
		b := make([]byte, size)
		return &b
	}
	p := pl.buckets[bits].Get().(*[]byte)
	*p = (*p)[:size]
	return p
}

func (pl *pool) put(b *[]byte) {
	if b == nil {
		return
	}
	c := cap(*b)
	if c == 0 || c > 65536 {
		return
	}
	bits := msb(c)
	if c != 1<<uint(bits) || bits >= len(pl.buckets) {
		return
	}
	pl.buckets[bits].Put(b)
}

// Borrow returns a Pipe whose initial backing array comes from the shared
// pool sized to hint bytes, rounded up to a power of two. Release returns
// that backing array to the pool and leaves the Pipe empty with no backing
// array; growth never draws from the pool, only Borrow does.
func Borrow(hint int) *Pipe {
	if hint <= 0 {
		hint = defaultChunk
	}
	b := globalPool.get(hint)
	return &Pipe{buf: (*b)[:cap(*b)]}
}

// Release returns the Pipe's current backing array to the shared pool, if
// it is pool-compatible (capacity a power of two, at most 64KiB). Call this
// only when the Pipe is being discarded; afterwards the Pipe is empty, and a
// later AllocateBack grows a fresh, unpooled backing array.
func (p *Pipe) Release() {
	b := p.buf
	globalPool.put(&b)
	p.buf = nil
	p.head, p.tail = 0, 0
}
