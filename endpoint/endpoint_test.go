package endpoint

import "testing"

func TestParseIPv4String(t *testing.T) {
	e, err := Parse("127.0.0.1:8080")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if e.Family() != IPv4 {
		t.Fatalf("Family() = %v, want IPv4", e.Family())
	}
	if got, want := e.String(), "127.0.0.1:8080"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	if e.Len() != 16 {
		t.Fatalf("Len() = %d, want 16", e.Len())
	}
}

func TestParseIPv6Bracketed(t *testing.T) {
	e, err := Parse("[::1]:9000")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if e.Family() != IPv6 {
		t.Fatalf("Family() = %v, want IPv6", e.Family())
	}
	if got, want := e.String(), "[::1]:9000"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	if e.Len() != 28 {
		t.Fatalf("Len() = %d, want 28", e.Len())
	}
}

func TestParseUnixPath(t *testing.T) {
	e, err := Parse("/tmp/flowio.sock")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if e.Family() != Unix {
		t.Fatalf("Family() = %v, want Unix", e.Family())
	}
	if e.Path() != "/tmp/flowio.sock" {
		t.Fatalf("Path() = %q", e.Path())
	}
}

func TestParseInvalidAddress(t *testing.T) {
	if _, err := Parse("not-an-address"); err == nil {
		t.Fatal("expected error for malformed address")
	}
}

func TestUnspecifiedIsNotOpen(t *testing.T) {
	var e Endpoint
	if e.IsOpen() {
		t.Fatal("zero-value Endpoint should not be open")
	}
	if e.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", e.Len())
	}
}
