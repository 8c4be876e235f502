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
	"os/signal"
	"sync"
)

// signalSet adapts the original's ev::sig watchers (one per registered
// signal number, libev's own signalfd-equivalent) onto Go's channel-based
// os/signal.Notify, since the runtime's signal delivery already owns
// SIGCHLD/SIGTERM/etc and a raw signalfd would race with it.
type signalSet struct {
	mu       sync.Mutex
	watchers map[os.Signal][]Watcher
	ch       chan os.Signal
	pending  []os.Signal
	started  bool
}

func newSignalSet() *signalSet {
	return &signalSet{
		watchers: make(map[os.Signal][]Watcher),
		ch:       make(chan os.Signal, 16),
	}
}

// OnSignal registers w to be invoked (from the Reactor's own goroutine,
// via DrainSignals) whenever sig is delivered to the process.
func (r *Reactor) OnSignal(sig os.Signal, w Watcher) {
	r.signals.mu.Lock()
	r.signals.watchers[sig] = append(r.signals.watchers[sig], w)
	if !r.signals.started {
		r.signals.started = true
		signal.Notify(r.signals.ch)
		go r.pumpSignals()
	}
	r.signals.mu.Unlock()
}

// pumpSignals forwards delivered signals into the reactor's wakeup path;
// DrainSignals (called from Run) is what actually invokes watchers, so
// all invocation still happens on the reactor's own goroutine.
func (r *Reactor) pumpSignals() {
	for sig := range r.signals.ch {
		r.signals.mu.Lock()
		r.signals.pending = append(r.signals.pending, sig)
		r.signals.mu.Unlock()
		r.Wake()
	}
}

// DrainSignals invokes watchers for every signal delivered since the last
// call. Run calls this each pass so signal watchers fire on the reactor's
// own goroutine, never on the os/signal delivery goroutine directly.
func (r *Reactor) DrainSignals() {
	r.signals.mu.Lock()
	pending := r.signals.pending
	r.signals.pending = nil
	r.signals.mu.Unlock()

	for _, sig := range pending {
		r.signals.mu.Lock()
		ws := append([]Watcher(nil), r.signals.watchers[sig]...)
		r.signals.mu.Unlock()
		for _, w := range ws {
			w.Invoke(0)
		}
	}
}
