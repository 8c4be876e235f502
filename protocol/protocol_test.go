package protocol

import (
	"bytes"
	"testing"
)

func TestByteDelimitedSplitsOnSingleMessage(t *testing.T) {
	var got []byte
	p := NewByteDelimited('\n', func(msg []byte) { got = append([]byte(nil), msg...) })

	in := []byte("hello\n")
	consumed, n := Dispatch(p, in)
	if n != 1 {
		t.Fatalf("expected 1 message, got %d", n)
	}
	if consumed != len(in) {
		t.Fatalf("consumed = %d, want %d", consumed, len(in))
	}
	if string(got) != "hello" {
		t.Fatalf("got = %q", got)
	}
}

func TestByteDelimitedWaitsForMoreData(t *testing.T) {
	called := false
	p := NewByteDelimited('\n', func([]byte) { called = true })

	consumed, n := Dispatch(p, []byte("partial"))
	if n != 0 || consumed != 0 || called {
		t.Fatalf("expected no message yet, got consumed=%d n=%d called=%v", consumed, n, called)
	}
}

func TestByteDelimitedHandlesMultipleMessagesInOneBuffer(t *testing.T) {
	var msgs [][]byte
	p := NewByteDelimited('\n', func(msg []byte) { msgs = append(msgs, append([]byte(nil), msg...)) })

	in := []byte("a\nbb\nccc\n")
	consumed, n := Dispatch(p, in)
	if n != 3 || consumed != len(in) {
		t.Fatalf("n=%d consumed=%d", n, consumed)
	}
	want := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc")}
	for i := range want {
		if !bytes.Equal(msgs[i], want[i]) {
			t.Fatalf("msgs[%d] = %q, want %q", i, msgs[i], want[i])
		}
	}
}

func TestBytesDelimitedHandlesSplitAcrossBufferBoundary(t *testing.T) {
	var got []byte
	p := NewBytesDelimited([]byte("\r\n"), func(msg []byte) { got = append([]byte(nil), msg...) })

	// Simulate a short read landing exactly between the two delimiter
	// bytes: first call sees "hello\r", second sees "hello\r\n".
	consumed, n := Dispatch(p, []byte("hello\r"))
	if n != 0 || consumed != 0 {
		t.Fatalf("expected no message on partial delimiter, got n=%d consumed=%d", n, consumed)
	}
	consumed, n = Dispatch(p, []byte("hello\r\n"))
	if n != 1 || consumed != len("hello\r\n") {
		t.Fatalf("n=%d consumed=%d", n, consumed)
	}
	if string(got) != "hello" {
		t.Fatalf("got = %q", got)
	}
}

func TestLengthPrefixedHeader2RoundTrip(t *testing.T) {
	var got []byte
	p := NewLengthPrefixed(Header2, func(msg []byte) { got = append([]byte(nil), msg...) })

	frame := EncodeLengthPrefixed(Header2, []byte("payload"))
	consumed, n := Dispatch(p, frame)
	if n != 1 || consumed != len(frame) {
		t.Fatalf("n=%d consumed=%d", n, consumed)
	}
	if string(got) != "payload" {
		t.Fatalf("got = %q", got)
	}
}

func TestLengthPrefixedZeroLengthPayloadIsAValidMessage(t *testing.T) {
	calls := 0
	p := NewLengthPrefixed(Header2, func(msg []byte) {
		calls++
		if len(msg) != 0 {
			t.Fatalf("expected empty payload, got %q", msg)
		}
	})
	frame := EncodeLengthPrefixed(Header2, nil)
	_, n := Dispatch(p, frame)
	if n != 1 || calls != 1 {
		t.Fatalf("n=%d calls=%d", n, calls)
	}
}

func TestLengthPrefixedWaitsForFullPayload(t *testing.T) {
	called := false
	p := NewLengthPrefixed(Header4, func([]byte) { called = true })

	frame := EncodeLengthPrefixed(Header4, []byte("0123456789"))
	_, n := Dispatch(p, frame[:6]) // header (4) + 2 of 10 payload bytes
	if n != 0 || called {
		t.Fatalf("expected no message with incomplete payload, n=%d called=%v", n, called)
	}
}

func TestAcceptProtocolFiresOnlyWhenPending(t *testing.T) {
	pending := false
	taken := false
	a := NewAccept(func() bool { return pending }, func() { taken = true; pending = false })

	if a.MessageSize(nil) != 0 {
		t.Fatal("expected no pending connection initially")
	}
	pending = true
	if a.MessageSize(nil) != 1 {
		t.Fatal("expected a pending connection to be reported")
	}
	a.OnMessage(nil)
	if !taken {
		t.Fatal("Take was not invoked")
	}
	if a.MessageSize(nil) != 0 {
		t.Fatal("expected pending to have been cleared by Take")
	}
}

func TestHandshakeProtocolFiresOnceThenStops(t *testing.T) {
	steps := 0
	done := false
	h := NewHandshake(func() bool {
		steps++
		return steps >= 3
	}, func() { done = true })

	for i := 0; i < 2; i++ {
		if h.MessageSize(nil) != 0 {
			t.Fatalf("handshake reported done too early at step %d", i)
		}
	}
	if h.MessageSize(nil) != 1 {
		t.Fatal("expected handshake to report completion on step 3")
	}
	h.OnMessage(nil)
	if !done {
		t.Fatal("Done callback was not invoked")
	}
	if h.MessageSize(nil) != 0 {
		t.Fatal("handshake should not re-fire after completion")
	}
}
