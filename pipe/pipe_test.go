package pipe

import (
	"math/rand"
	"testing"
)

func TestAllocateFreeAccounting(t *testing.T) {
	p := New()
	var allocated, freed int

	for i := 0; i < 200; i++ {
		n := rand.Intn(300) + 1
		b := p.AllocateBack(n)
		if len(b) != n {
			t.Fatalf("AllocateBack(%d) returned %d bytes", n, len(b))
		}
		for j := range b {
			b[j] = byte(allocated + j)
		}
		allocated += n

		if p.Size() != allocated-freed {
			t.Fatalf("size mismatch after allocate: got %d want %d", p.Size(), allocated-freed)
		}

		if rand.Intn(3) == 0 && freed < allocated {
			f := rand.Intn(allocated - freed)
			p.FreeFront(f)
			freed += f
			if p.Size() != allocated-freed {
				t.Fatalf("size mismatch after free: got %d want %d", p.Size(), allocated-freed)
			}
		}
	}

	if p.Size() != allocated-freed {
		t.Fatalf("final size mismatch: got %d want %d", p.Size(), allocated-freed)
	}
}

func TestAllocateBackContentsReadableAtOffset(t *testing.T) {
	p := New()
	a := p.AllocateBack(4)
	copy(a, []byte("abcd"))
	b := p.AllocateBack(4)
	copy(b, []byte("efgh"))

	if got := string(p.Begin()); got != "abcdefgh" {
		t.Fatalf("Begin() = %q, want %q", got, "abcdefgh")
	}

	p.FreeFront(4)
	if got := string(p.Begin()); got != "efgh" {
		t.Fatalf("Begin() after FreeFront = %q, want %q", got, "efgh")
	}
}

func TestFreeBackShrinksAfterShortRead(t *testing.T) {
	p := New()
	chunk := p.AllocateBack(64)
	n := copy(chunk, []byte("short"))
	p.FreeBack(len(chunk) - n)

	if p.Size() != n {
		t.Fatalf("Size() = %d, want %d", p.Size(), n)
	}
	if string(p.Begin()) != "short" {
		t.Fatalf("Begin() = %q, want %q", p.Begin(), "short")
	}
}

func TestReorderPreservesContentsAndResetsHead(t *testing.T) {
	p := New()
	p.AllocateBack(4)
	copy(p.Begin(), []byte("wxyz"))
	p.FreeFront(2)

	p.Reorder()
	if p.head != 0 {
		t.Fatalf("head = %d after Reorder, want 0", p.head)
	}
	if string(p.Begin()) != "yz" {
		t.Fatalf("Begin() after Reorder = %q, want %q", p.Begin(), "yz")
	}
}

func TestResetDropsCursorsKeepsCapacity(t *testing.T) {
	p := New()
	p.AllocateBack(128)
	capBefore := p.Cap()

	p.Reset()
	if p.Size() != 0 {
		t.Fatalf("Size() after Reset = %d, want 0", p.Size())
	}
	if p.Cap() != capBefore {
		t.Fatalf("Cap() after Reset = %d, want %d (capacity must survive Reset)", p.Cap(), capBefore)
	}
}

func TestGrowPreservesLiveBytes(t *testing.T) {
	p := NewSize(8)
	for i := 0; i < 100; i++ {
		b := p.AllocateBack(8)
		for j := range b {
			b[j] = byte(i)
		}
	}
	if p.Size() != 800 {
		t.Fatalf("Size() = %d, want 800", p.Size())
	}
	for i := 0; i < 100; i++ {
		off := i * 8
		for j := 0; j < 8; j++ {
			if p.At(off+j) != byte(i) {
				t.Fatalf("byte at %d = %d, want %d", off+j, p.At(off+j), i)
			}
		}
	}
}

func TestBorrowReleaseRoundTrip(t *testing.T) {
	p := Borrow(1024)
	if p.Cap() < 1024 {
		t.Fatalf("Cap() = %d, want >= 1024", p.Cap())
	}
	p.AllocateBack(10)
	p.Release()
	if p.Size() != 0 {
		t.Fatalf("Size() after Release = %d, want 0", p.Size())
	}
}
