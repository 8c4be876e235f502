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

package reactor

import "syscall"

// ChildExitEvent carries the wait4() result for a reaped child process.
type ChildExitEvent struct {
	Pid        int
	ExitStatus int
	Signaled   bool
	Signal     syscall.Signal
}

// childExitWatcher wraps one interested Watcher per pid.
type childExitWatcher struct {
	pid int
	w   Watcher
}

// WatchChild registers interest in pid's termination. On SIGCHLD delivery
// the reactor reaps exited children with wait4(-1, WNOHANG) and invokes w
// with the child's raw wait status as the mask; callers decode it with
// ChildExitEventFromMask, matching the original's child watcher which is
// itself only a thin
// wrapper over the same waitpid-family syscalls.
func (r *Reactor) WatchChild(pid int, w Watcher) {
	r.childMu.Lock()
	r.childWatchers = append(r.childWatchers, childExitWatcher{pid: pid, w: w})
	r.childMu.Unlock()
	r.OnSignal(syscall.SIGCHLD, invokeFunc(func(uint32) { r.reapChildren() }))
}

func (r *Reactor) reapChildren() {
	for {
		var ws syscall.WaitStatus
		pid, err := syscall.Wait4(-1, &ws, syscall.WNOHANG, nil)
		if err != nil || pid <= 0 {
			return
		}
		r.childMu.Lock()
		var remaining []childExitWatcher
		var matched []childExitWatcher
		for _, cw := range r.childWatchers {
			if cw.pid == pid {
				matched = append(matched, cw)
			} else {
				remaining = append(remaining, cw)
			}
		}
		r.childWatchers = remaining
		r.childMu.Unlock()

		for _, cw := range matched {
			cw.w.Invoke(uint32(ws))
		}
	}
}

// ChildExitEventFromMask decodes the raw mask a child-exit Watcher
// receives back into a ChildExitEvent.
func ChildExitEventFromMask(pid int, mask uint32) ChildExitEvent {
	ws := syscall.WaitStatus(mask)
	ev := ChildExitEvent{Pid: pid}
	if ws.Exited() {
		ev.ExitStatus = ws.ExitStatus()
	}
	if ws.Signaled() {
		ev.Signaled = true
		ev.Signal = ws.Signal()
	}
	return ev
}
