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

// Package session implements the acceptor/session-manager layer from
// spec.md §4.8: a Server composes an ioasync.Acceptor with a Map of
// uuid.UUID to *Session, materializing a Session for every accepted
// connection and tearing it down when its transport closes.
package session

import "github.com/google/uuid"

// Map is uuid -> *Session, owned by exactly one Server on exactly one
// reactor goroutine; spec.md §5 says session maps need no locking
// because of that single-threaded ownership, so this type carries none.
type Map struct {
	m map[uuid.UUID]*Session
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{m: make(map[uuid.UUID]*Session)}
}

func (sm *Map) put(id uuid.UUID, s *Session) { sm.m[id] = s }

// Get looks up a session by id.
func (sm *Map) Get(id uuid.UUID) (*Session, bool) {
	s, ok := sm.m[id]
	return s, ok
}

func (sm *Map) remove(id uuid.UUID) (*Session, bool) {
	s, ok := sm.m[id]
	if ok {
		delete(sm.m, id)
	}
	return s, ok
}

// Len reports the number of live sessions.
func (sm *Map) Len() int { return len(sm.m) }

// Each calls fn once per session currently in the map, over a snapshot
// taken before the first call: spec.md §4.8's broadcast contract only
// promises that sessions created *during* iteration are not guaranteed
// to receive it, which a snapshot satisfies simply and cheaply (no
// snapshot would equally satisfy the spec by including them, but then a
// session whose own accept handler publishes a broadcast could recurse
// the map shape underfoot).
func (sm *Map) Each(fn func(*Session)) {
	snapshot := make([]*Session, 0, len(sm.m))
	for _, s := range sm.m {
		snapshot = append(snapshot, s)
	}
	for _, s := range snapshot {
		fn(s)
	}
}
