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

// Package uri parses RFC 3986 references the way the runtime's acceptors
// and connectors are configured: scheme, user info, host, port (resolved
// against a scheme default when absent), path (never empty), a
// case-insensitive multimap of query parameters, and a fragment.
//
// The grammar itself is delegated to net/url, the external RFC 3986
// collaborator spec.md §1 calls out; this package only adds the
// scheme-default-port resolution, the case-insensitive multimap query view,
// and the address-family hint net/url doesn't carry.
package uri

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/flowio/flowio/endpoint"
)

// Values is a case-insensitive multimap of query parameters. Keys are
// stored and looked up by their lower-cased form; empty keys and empty
// values are preserved distinctly, as spec.md §6 requires.
type Values map[string][]string

// Get returns the first value for key, or "" if absent.
func (v Values) Get(key string) string {
	vs := v[strings.ToLower(key)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// All returns every value for key, in query order.
func (v Values) All(key string) []string {
	return v[strings.ToLower(key)]
}

// Has reports whether key appeared at all, even with an empty value.
func (v Values) Has(key string) bool {
	_, ok := v[strings.ToLower(key)]
	return ok
}

func (v Values) add(key, val string) {
	k := strings.ToLower(key)
	v[k] = append(v[k], val)
}

// URI is an immutable parsed reference.
type URI struct {
	scheme       string
	userInfo     string
	host         string
	port         uint16
	path         string
	rawQuery     string
	query        Values
	fragment     string
	addressFamily endpoint.Family
}

// Scheme returns the URI's scheme, lower-cased.
func (u URI) Scheme() string { return u.scheme }

// UserInfo returns the user-info component (before the '@') in the
// escaped form net/url's Userinfo.String produces.
func (u URI) UserInfo() string { return u.userInfo }

// Host returns the host component as net/url's Hostname reports it:
// percent-escapes in the host are decoded and IPv6 brackets are removed,
// so it is not always the host exactly as written.
func (u URI) Host() string { return u.host }

// Port returns the resolved port: either the one the URI specified, or the
// scheme's registered default.
func (u URI) Port() uint16 { return u.port }

// Path returns the URI path, defaulting to "/" when the source omitted it.
func (u URI) Path() string { return u.path }

// RawQuery returns the undecoded query string (without the leading '?').
func (u URI) RawQuery() string { return u.rawQuery }

// Query returns the parsed, case-insensitive query multimap.
func (u URI) Query() Values { return u.query }

// Fragment returns the fragment (without the leading '#').
func (u URI) Fragment() string { return u.fragment }

// AddressFamily returns the address family hint supplied to Parse.
func (u URI) AddressFamily() endpoint.Family { return u.addressFamily }

// HostPort returns "host:port", suitable for DNS/endpoint resolution.
func (u URI) HostPort() string {
	return u.host + ":" + strconv.Itoa(int(u.port))
}

// Parse parses s per RFC 3986 via net/url, then resolves scheme defaults
// and decodes the query into a case-insensitive multimap. af is recorded on
// the result as a hint for endpoint resolution (e.g. force IPv6); it does
// not affect parsing. Invariant: on success, Path() is never empty.
func Parse(s string, af endpoint.Family) (URI, error) {
	parsed, err := url.Parse(s)
	if err != nil {
		return URI{}, errors.Wrapf(err, "uri: invalid reference %q", s)
	}
	if parsed.Scheme == "" {
		return URI{}, errors.Errorf("uri: %q has no scheme", s)
	}

	scheme := strings.ToLower(parsed.Scheme)

	var port uint16
	if p := parsed.Port(); p != "" {
		v, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return URI{}, errors.Wrapf(err, "uri: invalid port in %q", s)
		}
		port = uint16(v)
	} else if def, ok := DefaultPort(scheme); ok {
		port = def
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}

	userInfo := ""
	if parsed.User != nil {
		userInfo = parsed.User.String()
	}

	// url.ParseQuery (which parsed.Query() wraps) already preserves
	// valueless keys ("a") and empty values ("b=") as distinct empty-string
	// entries, so a direct copy into the case-insensitive multimap is
	// enough to satisfy spec.md §6's "empty keys and empty values are
	// preserved distinctly".
	q := make(Values)
	for k, vs := range parsed.Query() {
		for _, v := range vs {
			q.add(k, v)
		}
	}

	return URI{
		scheme:        scheme,
		userInfo:      userInfo,
		host:          parsed.Hostname(),
		port:          port,
		path:          path,
		rawQuery:      parsed.RawQuery,
		query:         q,
		fragment:      parsed.Fragment,
		addressFamily: af,
	}, nil
}
