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

// Package endpoint implements an address-family-agnostic socket address: a
// tagged union over IPv4, IPv6 and Unix-domain addresses, convertible
// to/from string form and to the raw sockaddr bytes the socket package
// needs.
package endpoint

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Family identifies which member of the Endpoint union is populated.
type Family int

const (
	// Unspecified marks a zero-value Endpoint with no address.
	Unspecified Family = iota
	IPv4
	IPv6
	Unix
)

func (f Family) String() string {
	switch f {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	case Unix:
		return "unix"
	default:
		return "unspecified"
	}
}

// Endpoint is a tagged union over the address families this runtime
// speaks. Exactly one of (ip, path) is meaningful, selected by Family.
type Endpoint struct {
	family Family
	ip     net.IP
	port   uint16
	path   string // unix socket path, or empty
}

// IPv4Endpoint builds an IPv4 endpoint from a 4-byte address and port.
func IPv4Endpoint(ip net.IP, port uint16) Endpoint {
	return Endpoint{family: IPv4, ip: ip.To4(), port: port}
}

// IPv6Endpoint builds an IPv6 endpoint from a 16-byte address and port.
func IPv6Endpoint(ip net.IP, port uint16) Endpoint {
	return Endpoint{family: IPv6, ip: ip.To16(), port: port}
}

// UnixEndpoint builds a Unix-domain endpoint from a filesystem path.
func UnixEndpoint(path string) Endpoint {
	return Endpoint{family: Unix, path: path}
}

// Family reports which address family this Endpoint holds.
func (e Endpoint) Family() Family { return e.family }

// IsOpen reports whether the Endpoint holds a populated address.
func (e Endpoint) IsOpen() bool { return e.family != Unspecified }

// IP returns the IP address for an IPv4/IPv6 endpoint, or nil otherwise.
func (e Endpoint) IP() net.IP { return e.ip }

// Port returns the port for an IPv4/IPv6 endpoint, or 0 otherwise.
func (e Endpoint) Port() uint16 { return e.port }

// Path returns the filesystem path for a Unix endpoint, or "" otherwise.
func (e Endpoint) Path() string { return e.path }

// Len returns the size in bytes of the native sockaddr this endpoint maps
// to: 16 for sockaddr_in, 28 for sockaddr_in6, and len(path)+2 for AF_UNIX
// (the path length is not checked against the platform's sockaddr_un). This is the invariant spec.md
// requires: len() matches the family's sockaddr size.
func (e Endpoint) Len() int {
	switch e.family {
	case IPv4:
		return 16
	case IPv6:
		return 28
	case Unix:
		return len(e.path) + 2
	default:
		return 0
	}
}

// String renders the Endpoint in the forms spec.md §6 requires: dotted
// decimal with :port for IPv4, bracketed [addr]:port for IPv6, and the raw
// path for Unix.
func (e Endpoint) String() string {
	switch e.family {
	case IPv4:
		return net.JoinHostPort(e.ip.String(), strconv.Itoa(int(e.port)))
	case IPv6:
		return "[" + e.ip.String() + "]:" + strconv.Itoa(int(e.port))
	case Unix:
		return e.path
	default:
		return ""
	}
}

// Parse turns a string address into an Endpoint. Unix paths are recognized
// by a leading "/", "./" or "../"; anything else is split with
// net.SplitHostPort as host:port, where host must be a literal IP (bracketed
// IPv6 or dotted IPv4). Host names and an empty host are rejected.
func Parse(s string) (Endpoint, error) {
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../") {
		return UnixEndpoint(s), nil
	}

	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, errors.Wrapf(err, "endpoint: invalid address %q", s)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Endpoint{}, errors.Wrapf(err, "endpoint: invalid port in %q", s)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return Endpoint{}, errors.Errorf("endpoint: host %q is not a literal IP address", host)
	}
	if v4 := ip.To4(); v4 != nil {
		return IPv4Endpoint(v4, uint16(port)), nil
	}
	return IPv6Endpoint(ip.To16(), uint16(port)), nil
}

// MustParse is Parse but panics on error; useful for constant test fixtures.
func MustParse(s string) Endpoint {
	e, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("endpoint.MustParse(%q): %v", s, err))
	}
	return e
}

// FromTCPAddr adapts a resolved *net.TCPAddr into an Endpoint, the usual
// source of endpoints once a name has been resolved via the URI/DNS layer.
func FromTCPAddr(a *net.TCPAddr) Endpoint {
	if v4 := a.IP.To4(); v4 != nil {
		return IPv4Endpoint(v4, uint16(a.Port))
	}
	return IPv6Endpoint(a.IP.To16(), uint16(a.Port))
}

// FromUDPAddr adapts a resolved *net.UDPAddr into an Endpoint.
func FromUDPAddr(a *net.UDPAddr) Endpoint {
	if v4 := a.IP.To4(); v4 != nil {
		return IPv4Endpoint(v4, uint16(a.Port))
	}
	return IPv6Endpoint(a.IP.To16(), uint16(a.Port))
}
