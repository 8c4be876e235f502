package uri

import (
	"testing"

	"github.com/flowio/flowio/endpoint"
)

func TestParseResolvesDefaultPort(t *testing.T) {
	u, err := Parse("https://example.com/a/b", endpoint.Unspecified)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if u.Port() != 443 {
		t.Fatalf("Port() = %d, want 443", u.Port())
	}
	if u.Path() != "/a/b" {
		t.Fatalf("Path() = %q", u.Path())
	}
}

func TestParseExplicitPortOverridesDefault(t *testing.T) {
	u, err := Parse("http://example.com:8080/", endpoint.Unspecified)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if u.Port() != 8080 {
		t.Fatalf("Port() = %d, want 8080", u.Port())
	}
}

func TestParseDefaultsEmptyPathToSlash(t *testing.T) {
	u, err := Parse("http://example.com", endpoint.Unspecified)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if u.Path() != "/" {
		t.Fatalf("Path() = %q, want %q", u.Path(), "/")
	}
}

func TestParseQueryPreservesEmptyKeysAndValuesDistinctly(t *testing.T) {
	u, err := Parse("http://example.com/?a&b=&c=1", endpoint.Unspecified)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	q := u.Query()
	if !q.Has("a") || q.Get("a") != "" {
		t.Fatalf("expected key 'a' present with empty value, got %q (has=%v)", q.Get("a"), q.Has("a"))
	}
	if !q.Has("b") || q.Get("b") != "" {
		t.Fatalf("expected key 'b' present with empty value, got %q", q.Get("b"))
	}
	if q.Get("c") != "1" {
		t.Fatalf("Get(c) = %q, want 1", q.Get("c"))
	}
}

func TestParseQueryCaseInsensitive(t *testing.T) {
	u, err := Parse("http://example.com/?Foo=bar", endpoint.Unspecified)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := u.Query().Get("foo"); got != "bar" {
		t.Fatalf("Get(foo) = %q, want bar", got)
	}
}

func TestParseRejectsSchemeless(t *testing.T) {
	if _, err := Parse("example.com/a", endpoint.Unspecified); err == nil {
		t.Fatal("expected error for a reference with no scheme")
	}
}

func TestParseUnknownSchemeNoDefaultPort(t *testing.T) {
	u, err := Parse("custom://host/path", endpoint.Unspecified)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if u.Port() != 0 {
		t.Fatalf("Port() = %d, want 0 for unregistered scheme", u.Port())
	}
}
