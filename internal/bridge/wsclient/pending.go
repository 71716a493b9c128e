// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

package wsclient

import (
	"sync"

	"sqldsh/cli/internal/hrana"
)

// outcome is what a waiting caller eventually receives: either a classified
// server response or a terminal error.
type outcome struct {
	resp hrana.Response
	err  error
}

// pendingTable maps in-flight request ids to their delivery slots. Callers
// insert a slot before writing the request; the read loop removes and
// resolves it when the matching reply arrives. Removal and delivery are one
// atomic step: whoever removes the slot is the only party that may send on
// it, so a reply can never be delivered twice.
type pendingTable struct {
	mu    sync.Mutex
	slots map[int32]chan outcome
}

func newPendingTable() *pendingTable {
	return &pendingTable{slots: make(map[int32]chan outcome)}
}

// insert registers a delivery slot for id and returns it. The channel is
// buffered so resolution never blocks the read loop, even when the caller
// has already given up waiting.
func (t *pendingTable) insert(id int32) chan outcome {
	ch := make(chan outcome, 1)
	t.mu.Lock()
	t.slots[id] = ch
	t.mu.Unlock()
	return ch
}

// remove takes the slot for id out of the table. The second return is false
// when no request with that id is pending (an orphaned reply, or a slot
// already claimed by a concurrent remover).
func (t *pendingTable) remove(id int32) (chan outcome, bool) {
	t.mu.Lock()
	ch, ok := t.slots[id]
	if ok {
		delete(t.slots, id)
	}
	t.mu.Unlock()
	return ch, ok
}

// removeOldestProbe takes out the longest-outstanding latency probe slot.
// Probe ids count down from -1, so the oldest one is the largest negative
// key. Used when a pong arrives without a usable payload.
func (t *pendingTable) removeOldestProbe() (chan outcome, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var (
		oldest int32
		found  bool
	)
	for id := range t.slots {
		if id >= 0 {
			continue
		}
		if !found || id > oldest {
			oldest = id
			found = true
		}
	}
	if !found {
		return nil, false
	}
	ch := t.slots[oldest]
	delete(t.slots, oldest)
	return ch, true
}

// drain fails every remaining slot with err and empties the table. Called
// when the read loop terminates so no caller waits forever on a dead
// connection. Returns the number of slots failed.
func (t *pendingTable) drain(err error) int {
	t.mu.Lock()
	slots := t.slots
	t.slots = make(map[int32]chan outcome)
	t.mu.Unlock()
	for _, ch := range slots {
		ch <- outcome{err: err}
	}
	return len(slots)
}
