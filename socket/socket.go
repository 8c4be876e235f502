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

// Package socket wraps raw BSD socket primitives (golang.org/x/sys/unix)
// behind a uniform, move-only Socket value: bind, listen, connect
// (blocking and non-blocking), read/write, shutdown, socket options, and
// peer/local endpoint queries. The reactor package drives these by fd
// directly, rather than going through net.Conn, because it needs to own
// readiness notification itself.
//
// Linux only: the fd-level, epoll-driven reactor this runtime is built
// around has no portable equivalent, matching the scope the teacher's own
// platform-specific files (server/listen_linux.go) already accepted.
package socket

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/flowio/flowio/endpoint"
)

// Kind distinguishes the socket types this package creates.
type Kind int

const (
	Stream   Kind = unix.SOCK_STREAM
	Datagram Kind = unix.SOCK_DGRAM
)

// Socket owns a native file descriptor. It is move-only in spirit: copying
// a Socket value and closing both copies will double-close the fd, so
// callers pass *Socket or transfer ownership explicitly (see Extract-style
// APIs in the session package).
type Socket struct {
	fd       int
	family   endpoint.Family
	kind     Kind
	nonblock bool
}

// Invalid is the fd value of a closed Socket.
const Invalid = -1

// Open creates a new socket for the given family and kind. Protocol is
// always 0 (let the kernel choose, as BSD sockets do for TCP/UDP/Unix).
func Open(family endpoint.Family, kind Kind) (*Socket, error) {
	domain, err := domainFor(family)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(domain, int(kind), 0)
	if err != nil {
		return nil, errors.Wrap(err, "socket: open")
	}
	return &Socket{fd: fd, family: family, kind: kind}, nil
}

// FromFD wraps an already-open descriptor (e.g. one returned by Accept),
// taking ownership of it.
func FromFD(fd int, family endpoint.Family, kind Kind) *Socket {
	return &Socket{fd: fd, family: family, kind: kind}
}

// FD returns the native descriptor, Invalid if closed.
func (s *Socket) FD() int { return s.fd }

// Family reports the socket's address family.
func (s *Socket) Family() endpoint.Family { return s.family }

// IsOpen reports whether the socket holds a valid descriptor.
func (s *Socket) IsOpen() bool { return s != nil && s.fd != Invalid }

// SetNonblocking toggles O_NONBLOCK on the underlying fd.
func (s *Socket) SetNonblocking(on bool) error {
	if err := unix.SetNonblock(s.fd, on); err != nil {
		return errors.Wrap(err, "socket: set nonblocking")
	}
	s.nonblock = on
	return nil
}

// Nonblocking reports the last value passed to SetNonblocking.
func (s *Socket) Nonblocking() bool { return s.nonblock }

// Bind binds the socket to a local endpoint. SO_REUSEADDR is set first, as
// spec.md §4.2 requires for listeners (harmless for non-listening sockets).
func (s *Socket) Bind(ep endpoint.Endpoint) error {
	if err := s.SetReuseAddr(true); err != nil {
		return err
	}
	sa, err := toSockaddr(ep)
	if err != nil {
		return err
	}
	if err := unix.Bind(s.fd, sa); err != nil {
		return errors.Wrap(err, "socket: bind")
	}
	return nil
}

// Listen marks the socket as passive with the given backlog.
func (s *Socket) Listen(backlog int) error {
	if err := unix.Listen(s.fd, backlog); err != nil {
		return errors.Wrap(err, "socket: listen")
	}
	return nil
}

// Accept accepts one pending connection, returning the new connected
// Socket and the peer's Endpoint. On a non-blocking listener with nothing
// pending, returns (nil, Endpoint{}, ClassWouldBlock's underlying error).
func (s *Socket) Accept() (*Socket, endpoint.Endpoint, error) {
	nfd, sa, err := unix.Accept(s.fd)
	if err != nil {
		return nil, endpoint.Endpoint{}, err
	}
	ns := &Socket{fd: nfd, family: s.family, kind: s.kind}
	return ns, fromSockaddr(sa), nil
}

// Connect performs a blocking connect.
func (s *Socket) Connect(ep endpoint.Endpoint) error {
	sa, err := toSockaddr(ep)
	if err != nil {
		return err
	}
	if err := unix.Connect(s.fd, sa); err != nil {
		return errors.Wrap(err, "socket: connect")
	}
	return nil
}

// NonblockingConnect implements spec.md §4.2's n_connect: it sets the
// socket non-blocking, issues connect, and returns ClassNone on immediate
// success or ClassInProgress when the caller must wait for write-readiness
// and call CompleteConnect (which checks SO_ERROR).
func (s *Socket) NonblockingConnect(ep endpoint.Endpoint) (Class, error) {
	if !s.nonblock {
		if err := s.SetNonblocking(true); err != nil {
			return ClassOther, err
		}
	}
	sa, err := toSockaddr(ep)
	if err != nil {
		return ClassOther, err
	}
	err = unix.Connect(s.fd, sa)
	if err == nil {
		return ClassNone, nil
	}
	class := Classify(err)
	if class == ClassInProgress || class == ClassWouldBlock {
		return ClassInProgress, nil
	}
	return class, errors.Wrap(err, "socket: connect")
}

// CompleteConnect checks SO_ERROR after write-readiness fires for a
// connect started by NonblockingConnect, per spec.md §4.2.
func (s *Socket) CompleteConnect() error {
	errno, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return errors.Wrap(err, "socket: getsockopt SO_ERROR")
	}
	if errno != 0 {
		return errors.Wrapf(unix.Errno(errno), "socket: connect failed")
	}
	return nil
}

// Read reads into b, returning (n, class, err). A class of ClassWouldBlock
// means "try again once the reactor reports readiness"; ClassPeerClosed
// and ClassOther are terminal for this socket.
func (s *Socket) Read(b []byte) (int, Class, error) {
	n, err := unix.Read(s.fd, b)
	if err != nil {
		return 0, Classify(err), err
	}
	return n, ClassNone, nil
}

// Write writes b, returning (n, class, err) with the same semantics as
// Read.
func (s *Socket) Write(b []byte) (int, Class, error) {
	n, err := unix.Write(s.fd, b)
	if err != nil {
		return 0, Classify(err), err
	}
	return n, ClassNone, nil
}

// ReadFrom is the UDP receive primitive: it returns the sender's Endpoint
// alongside the byte count.
func (s *Socket) ReadFrom(b []byte) (int, endpoint.Endpoint, error) {
	n, sa, err := unix.Recvfrom(s.fd, b, 0)
	if err != nil {
		return 0, endpoint.Endpoint{}, err
	}
	var ep endpoint.Endpoint
	if sa != nil {
		ep = fromSockaddr(sa)
	}
	return n, ep, nil
}

// WriteTo is the UDP send primitive: one call emits one datagram to dst.
func (s *Socket) WriteTo(b []byte, dst endpoint.Endpoint) (int, error) {
	sa, err := toSockaddr(dst)
	if err != nil {
		return 0, err
	}
	if err := unix.Sendto(s.fd, b, 0, sa); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Shutdown shuts down the read, write, or both halves of a connected
// socket, without releasing the descriptor.
func (s *Socket) Shutdown(how int) error {
	if err := unix.Shutdown(s.fd, how); err != nil {
		return errors.Wrap(err, "socket: shutdown")
	}
	return nil
}

// Close releases the descriptor. Idempotent: closing an already-closed
// Socket is a no-op, satisfying spec.md §8's "destroying a closed socket
// is safe".
func (s *Socket) Close() error {
	if s.fd == Invalid {
		return nil
	}
	fd := s.fd
	s.fd = Invalid
	if err := unix.Close(fd); err != nil {
		return errors.Wrap(err, "socket: close")
	}
	return nil
}

// LocalEndpoint queries the socket's bound local address.
func (s *Socket) LocalEndpoint() (endpoint.Endpoint, error) {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return endpoint.Endpoint{}, errors.Wrap(err, "socket: getsockname")
	}
	return fromSockaddr(sa), nil
}

// PeerEndpoint queries the socket's connected peer address.
func (s *Socket) PeerEndpoint() (endpoint.Endpoint, error) {
	sa, err := unix.Getpeername(s.fd)
	if err != nil {
		return endpoint.Endpoint{}, errors.Wrap(err, "socket: getpeername")
	}
	return fromSockaddr(sa), nil
}
