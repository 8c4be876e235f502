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

import (
	"os"
	"time"
)

// statWatcher polls a path's mtime/size at an interval and invokes w when
// either changes, standing in for the original's ev::stat (itself a
// poll-based fallback used when inotify isn't portable enough). It piggy
// backs on the timer queue rather than a separate OS mechanism, since
// Reactor.Run already has a single timeout/fire path.
type statWatcher struct {
	path     string
	lastMod  time.Time
	lastSize int64
	w        Watcher
}

// WatchFile registers a file-stat watcher on path, polled every interval.
// w.Invoke(0) fires whenever the file's modification time or size has
// changed since the previous poll (or the file's existence changed).
func (r *Reactor) WatchFile(path string, interval time.Duration, w Watcher) TimerHandle {
	sw := &statWatcher{path: path, w: w}
	sw.poll() // establish baseline without firing
	var handle TimerHandle
	relay := invokeFunc(func(uint32) {
		if sw.poll() {
			w.Invoke(0)
		}
	})
	handle = r.timers.Add(interval, interval, relay)
	return handle
}

// poll stats the file and reports whether it changed since the last
// call, updating the baseline either way.
func (sw *statWatcher) poll() bool {
	info, err := os.Stat(sw.path)
	if err != nil {
		changed := !sw.lastMod.IsZero()
		sw.lastMod = time.Time{}
		sw.lastSize = 0
		return changed
	}
	changed := !info.ModTime().Equal(sw.lastMod) || info.Size() != sw.lastSize
	sw.lastMod = info.ModTime()
	sw.lastSize = info.Size()
	return changed
}

// UnwatchFile cancels a watcher started by WatchFile.
func (r *Reactor) UnwatchFile(h TimerHandle) {
	r.timers.Cancel(h)
}

// invokeFunc adapts a plain function to the Watcher interface.
type invokeFunc func(mask uint32)

func (f invokeFunc) Invoke(mask uint32) { f(mask) }
