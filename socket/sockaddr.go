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

package socket

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/flowio/flowio/endpoint"
)

// toSockaddr converts an Endpoint into the unix.Sockaddr its family needs
// for bind/connect/sendto.
func toSockaddr(e endpoint.Endpoint) (unix.Sockaddr, error) {
	switch e.Family() {
	case endpoint.IPv4:
		var addr [4]byte
		copy(addr[:], e.IP().To4())
		return &unix.SockaddrInet4{Port: int(e.Port()), Addr: addr}, nil
	case endpoint.IPv6:
		var addr [16]byte
		copy(addr[:], e.IP().To16())
		return &unix.SockaddrInet6{Port: int(e.Port()), Addr: addr}, nil
	case endpoint.Unix:
		return &unix.SockaddrUnix{Name: e.Path()}, nil
	default:
		return nil, errors.New("socket: endpoint has no address family")
	}
}

// fromSockaddr converts a unix.Sockaddr (as returned by Getsockname,
// Getpeername or Accept) back into an Endpoint.
func fromSockaddr(sa unix.Sockaddr) endpoint.Endpoint {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return endpoint.IPv4Endpoint(a.Addr[:], uint16(a.Port))
	case *unix.SockaddrInet6:
		return endpoint.IPv6Endpoint(a.Addr[:], uint16(a.Port))
	case *unix.SockaddrUnix:
		return endpoint.UnixEndpoint(a.Name)
	default:
		return endpoint.Endpoint{}
	}
}

func domainFor(family endpoint.Family) (int, error) {
	switch family {
	case endpoint.IPv4:
		return unix.AF_INET, nil
	case endpoint.IPv6:
		return unix.AF_INET6, nil
	case endpoint.Unix:
		return unix.AF_UNIX, nil
	default:
		return 0, errors.New("socket: unsupported address family")
	}
}
