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

// Package reactor is a single-threaded, per-goroutine event loop
// multiplexing file descriptors with epoll. Every Reactor instance is
// meant to be owned by exactly one goroutine and driven by that
// goroutine's own call to Run, matching the original's thread_local
// listener (one reactor core per OS thread). The only cross-goroutine
// entry points are Post and Wake, plus the mutex-guarded signal and
// child-exit registries.
package reactor

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Kind distinguishes the watcher variants a Reactor can register, mirroring
// the event types the original listener multiplexes through libev: fd
// readiness, timers, signals, file stat polling, and child-exit.
type Kind int

const (
	KindIO Kind = iota
	KindTimer
	KindSignal
	KindFileStat
	KindChildExit
)

// Watcher is anything the Reactor can invoke once its readiness condition
// fires. Invoke receives the raw epoll event mask for KindIO watchers, the
// raw wait status for child-exit watchers (see ChildExitEventFromMask), and
// 0 for the others.
type Watcher interface {
	Invoke(mask uint32)
}

type registration struct {
	kind Kind
	fd   int
	w    Watcher
}

// Reactor owns one epoll instance and the registrations multiplexed
// through it. Create one per goroutine that will call Run; do not share a
// Reactor across goroutines.
type Reactor struct {
	epfd int

	mu   sync.Mutex // guards regs only; Run/epoll_wait itself is single-threaded
	regs map[int]*registration

	timers   *timerQueue
	signals  *signalSet
	wakeupFd int // self-pipe eventfd, lets other goroutines interrupt Run

	childMu       sync.Mutex
	childWatchers []childExitWatcher

	postMu sync.Mutex
	posted []func()

	closed bool
}

// New creates a Reactor with its own epoll fd.
func New() (*Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "reactor: epoll_create1")
	}
	wakeupFd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, errors.Wrap(err, "reactor: eventfd")
	}
	r := &Reactor{
		epfd:     epfd,
		regs:     make(map[int]*registration),
		timers:   newTimerQueue(),
		signals:  newSignalSet(),
		wakeupFd: wakeupFd,
	}
	if err := r.addFD(wakeupFd, unix.EPOLLIN, &wakeupWatcher{r: r}); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// RegisterIO registers fd for the given epoll event mask (EPOLLIN,
// EPOLLOUT, or both), invoking w.Invoke(mask) whenever the mask is
// satisfied. Re-registering the same fd replaces its watcher and mask.
func (r *Reactor) RegisterIO(fd int, mask uint32, w Watcher) error {
	return r.addFD(fd, mask, w)
}

// ModifyIO changes the interest mask for an already-registered fd.
func (r *Reactor) ModifyIO(fd int, mask uint32) error {
	r.mu.Lock()
	reg, ok := r.regs[fd]
	r.mu.Unlock()
	if !ok {
		return errors.Errorf("reactor: fd %d not registered", fd)
	}
	ev := unix.EpollEvent{Events: mask, Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return errors.Wrap(err, "reactor: epoll_ctl mod")
	}
	reg.kind = KindIO
	return nil
}

// UnregisterIO removes fd's registration. It is safe to call even if fd
// was never registered.
func (r *Reactor) UnregisterIO(fd int) error {
	r.mu.Lock()
	_, ok := r.regs[fd]
	delete(r.regs, fd)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		if errors.Is(err, unix.EBADF) || errors.Is(err, unix.ENOENT) {
			return nil
		}
		return errors.Wrap(err, "reactor: epoll_ctl del")
	}
	return nil
}

func (r *Reactor) addFD(fd int, mask uint32, w Watcher) error {
	r.mu.Lock()
	_, exists := r.regs[fd]
	r.regs[fd] = &registration{kind: KindIO, fd: fd, w: w}
	r.mu.Unlock()

	ev := unix.EpollEvent{Events: mask, Fd: int32(fd)}
	op := unix.EPOLL_CTL_ADD
	if exists {
		op = unix.EPOLL_CTL_MOD
	}
	if err := unix.EpollCtl(r.epfd, op, fd, &ev); err != nil {
		return errors.Wrap(err, "reactor: epoll_ctl add")
	}
	return nil
}

// RunFlag tunes one Run call, analogous to the original's ev loop flags
// (EVRUN_NOWAIT / EVRUN_ONCE).
type RunFlag int

const (
	// RunDefault blocks until at least one event fires (or a timer
	// expires), then drains everything currently ready, then returns.
	RunDefault RunFlag = iota
	// RunNoWait polls without blocking: returns immediately if nothing
	// is ready.
	RunNoWait
	// RunOnce processes exactly one batch of ready events, blocking if
	// necessary to get at least one, then returns without looping.
	RunOnce
)

const maxEpollEvents = 256

// Run services the reactor. RunDefault and RunOnce both return after one
// batch of readiness is drained; callers loop on Run themselves (this
// mirrors the original's ev_run returning control to its caller between
// batches rather than blocking forever inside the library).
func (r *Reactor) Run(flag RunFlag) error {
	timeout := r.nextTimeout(flag)

	events := make([]unix.EpollEvent, maxEpollEvents)
	n, err := unix.EpollWait(r.epfd, events, timeout)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return errors.Wrap(err, "reactor: epoll_wait")
	}

	for i := 0; i < n; i++ {
		fd := int(events[i].Fd)
		r.mu.Lock()
		reg, ok := r.regs[fd]
		r.mu.Unlock()
		if !ok {
			continue
		}
		reg.w.Invoke(events[i].Events)
	}

	r.timers.fireExpired()
	r.DrainSignals()
	r.runPosted()
	return nil
}

func (r *Reactor) runPosted() {
	r.postMu.Lock()
	fns := r.posted
	r.posted = nil
	r.postMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Post schedules fn to run on the reactor's own goroutine during its next
// Run call and wakes a blocked Run so it doesn't wait for unrelated I/O
// first. This is the sanctioned door for a background goroutine to hand
// a result back to the single-threaded reactor — e.g. tlsio's blocking
// handshake goroutine (see session.acceptTLS) posting its outcome rather
// than touching reactor or session state directly from another thread.
func (r *Reactor) Post(fn func()) {
	r.postMu.Lock()
	r.posted = append(r.posted, fn)
	r.postMu.Unlock()
	r.Wake()
}

func (r *Reactor) nextTimeout(flag RunFlag) int {
	if flag == RunNoWait {
		return 0
	}
	if d, ok := r.timers.nextDeadline(); ok {
		ms := int(d.Milliseconds())
		if ms < 0 {
			ms = 0
		}
		return ms
	}
	return -1
}

// Wake interrupts a blocking Run call from another goroutine, used when
// something outside the reactor's own fds needs its attention (e.g. a
// cross-goroutine handoff into a Unix-socket session pool).
func (r *Reactor) Wake() error {
	buf := []byte{1, 0, 0, 0, 0, 0, 0, 0}
	_, err := unix.Write(r.wakeupFd, buf)
	if err != nil && err != unix.EAGAIN {
		return errors.Wrap(err, "reactor: wake")
	}
	return nil
}

// Close releases the epoll fd and all bookkeeping. Registered fds
// themselves are not closed; callers own those independently.
func (r *Reactor) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	unix.Close(r.wakeupFd)
	return unix.Close(r.epfd)
}

// RunPinned locks the calling goroutine to its current OS thread for the
// duration of fn, then calls fn — the idiom the original's per-thread
// reactor core relies on implicitly by being a thread_local. Use this for
// a reactor that must stay affined to one kernel thread (e.g. to keep
// SO_REUSEPORT shard locality, or for CPU-cache-friendly dispatch).
func RunPinned(fn func()) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	fn()
}

type wakeupWatcher struct{ r *Reactor }

func (w *wakeupWatcher) Invoke(uint32) {
	var buf [8]byte
	unix.Read(w.r.wakeupFd, buf[:])
}
