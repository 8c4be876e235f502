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
	"container/heap"
	"time"
)

// TimerHandle identifies a registered timer for later cancellation.
type TimerHandle uint64

type timerEntry struct {
	id       TimerHandle
	deadline time.Time
	repeat   time.Duration // 0 means one-shot
	w        Watcher
	index    int
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x interface{}) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// timerQueue is a min-heap of pending timer/file-stat-poll deadlines,
// standing in for the original's per-watcher ev::timer objects: rather
// than one OS timer per watcher, Reactor.Run computes a single epoll_wait
// timeout from the soonest deadline and fires everything due each pass.
type timerQueue struct {
	h      timerHeap
	nextID TimerHandle
}

func newTimerQueue() *timerQueue {
	q := &timerQueue{}
	heap.Init(&q.h)
	return q
}

// Add schedules w to fire once after d (repeat == 0) or every d
// thereafter (repeat != 0).
func (q *timerQueue) Add(d, repeat time.Duration, w Watcher) TimerHandle {
	q.nextID++
	e := &timerEntry{id: q.nextID, deadline: time.Now().Add(d), repeat: repeat, w: w}
	heap.Push(&q.h, e)
	return e.id
}

// Cancel removes a pending timer. A no-op if id already fired (one-shot)
// or was already cancelled.
func (q *timerQueue) Cancel(id TimerHandle) {
	for i, e := range q.h {
		if e.id == id {
			heap.Remove(&q.h, i)
			return
		}
	}
}

func (q *timerQueue) nextDeadline() (time.Duration, bool) {
	if len(q.h) == 0 {
		return 0, false
	}
	return time.Until(q.h[0].deadline), true
}

func (q *timerQueue) fireExpired() {
	now := time.Now()
	for len(q.h) > 0 && !q.h[0].deadline.After(now) {
		e := heap.Pop(&q.h).(*timerEntry)
		e.w.Invoke(0)
		if e.repeat > 0 {
			e.deadline = now.Add(e.repeat)
			heap.Push(&q.h, e)
		}
	}
}
