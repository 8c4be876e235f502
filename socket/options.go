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
)

// SetReuseAddr toggles SO_REUSEADDR, set before bind on every listener per
// spec.md §4.2.
func (s *Socket) SetReuseAddr(on bool) error {
	return s.setBoolOpt(unix.SOL_SOCKET, unix.SO_REUSEADDR, on)
}

// SetReusePort toggles SO_REUSEPORT, for multi-process/multi-thread
// listener sharding (SPEC_FULL.md §D.1).
func (s *Socket) SetReusePort(on bool) error {
	return s.setBoolOpt(unix.SOL_SOCKET, unix.SO_REUSEPORT, on)
}

// SetKeepAlive toggles SO_KEEPALIVE.
func (s *Socket) SetKeepAlive(on bool) error {
	return s.setBoolOpt(unix.SOL_SOCKET, unix.SO_KEEPALIVE, on)
}

// SetNoDelay toggles TCP_NODELAY (disabling Nagle's algorithm).
func (s *Socket) SetNoDelay(on bool) error {
	return s.setBoolOpt(unix.IPPROTO_TCP, unix.TCP_NODELAY, on)
}

// SetRecvBuffer sets SO_RCVBUF.
func (s *Socket) SetRecvBuffer(bytes int) error {
	if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_RCVBUF, bytes); err != nil {
		return errors.Wrap(err, "socket: setsockopt SO_RCVBUF")
	}
	return nil
}

// SetSendBuffer sets SO_SNDBUF.
func (s *Socket) SetSendBuffer(bytes int) error {
	if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_SNDBUF, bytes); err != nil {
		return errors.Wrap(err, "socket: setsockopt SO_SNDBUF")
	}
	return nil
}

// GetOptInt reads an integer socket option, exposing the raw
// getsockopt/level/name surface SPEC_FULL.md §D.1 asks for (e.g. SO_ERROR,
// SO_RCVBUF after the kernel has rounded it).
func (s *Socket) GetOptInt(level, name int) (int, error) {
	v, err := unix.GetsockoptInt(s.fd, level, name)
	if err != nil {
		return 0, errors.Wrap(err, "socket: getsockopt")
	}
	return v, nil
}

func (s *Socket) setBoolOpt(level, name int, on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := unix.SetsockoptInt(s.fd, level, name, v); err != nil {
		return errors.Wrapf(err, "socket: setsockopt level=%d name=%d", level, name)
	}
	return nil
}

// JoinMulticastGroupV4 joins an IPv4 multicast group via IP_ADD_MEMBERSHIP,
// per SPEC_FULL.md §D.1.
func (s *Socket) JoinMulticastGroupV4(group, iface [4]byte) error {
	mreq := &unix.IPMreq{Multiaddr: group, Interface: iface}
	if err := unix.SetsockoptIPMreq(s.fd, unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, mreq); err != nil {
		return errors.Wrap(err, "socket: IP_ADD_MEMBERSHIP")
	}
	return nil
}

// LeaveMulticastGroupV4 leaves a group joined with JoinMulticastGroupV4.
func (s *Socket) LeaveMulticastGroupV4(group, iface [4]byte) error {
	mreq := &unix.IPMreq{Multiaddr: group, Interface: iface}
	if err := unix.SetsockoptIPMreq(s.fd, unix.IPPROTO_IP, unix.IP_DROP_MEMBERSHIP, mreq); err != nil {
		return errors.Wrap(err, "socket: IP_DROP_MEMBERSHIP")
	}
	return nil
}

// JoinMulticastGroupV6 joins an IPv6 multicast group on the given
// interface index via IPV6_ADD_MEMBERSHIP.
func (s *Socket) JoinMulticastGroupV6(group [16]byte, ifaceIndex uint32) error {
	mreq := &unix.IPv6Mreq{Multiaddr: group, Interface: ifaceIndex}
	if err := unix.SetsockoptIPv6Mreq(s.fd, unix.IPPROTO_IPV6, unix.IPV6_JOIN_GROUP, mreq); err != nil {
		return errors.Wrap(err, "socket: IPV6_JOIN_GROUP")
	}
	return nil
}

// LeaveMulticastGroupV6 leaves a group joined with JoinMulticastGroupV6.
func (s *Socket) LeaveMulticastGroupV6(group [16]byte, ifaceIndex uint32) error {
	mreq := &unix.IPv6Mreq{Multiaddr: group, Interface: ifaceIndex}
	if err := unix.SetsockoptIPv6Mreq(s.fd, unix.IPPROTO_IPV6, unix.IPV6_LEAVE_GROUP, mreq); err != nil {
		return errors.Wrap(err, "socket: IPV6_LEAVE_GROUP")
	}
	return nil
}
