// Package transport implements the UDP datagram layer: sending and
// receiving whole A2S messages, transparently splitting outgoing responses
// that exceed a single datagram and reassembling incoming fragment trains.
package transport

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/queryshield/a2sproxy/internal/a2s"
)

const (
	// maxInFlightMessages bounds how many distinct message_id reassembly
	// entries we track at once, evicted LRU-style under pressure from a
	// peer that starts many fragment trains without finishing them.
	maxInFlightMessages = 1024

	// maxFragmentsPerMessage bounds how many fragments a single message_id
	// may accumulate before it's considered broken and dropped.
	maxFragmentsPerMessage = 100
)

// reassemblyEntry tracks one in-progress fragment train.
type reassemblyEntry struct {
	expectedCount uint8
	fragments     map[uint8][]byte
	elem          *list.Element
}

func newReassemblyEntry(count uint8) *reassemblyEntry {
	return &reassemblyEntry{
		expectedCount: count,
		fragments:     make(map[uint8][]byte, count),
	}
}

func (e *reassemblyEntry) complete() bool {
	return len(e.fragments) == int(e.expectedCount)
}

// assemble concatenates fragments 0..expectedCount-1 in order. Called only
// once complete() is true.
func (e *reassemblyEntry) assemble() []byte {
	var total int
	for i := uint8(0); i < e.expectedCount; i++ {
		total += len(e.fragments[i])
	}
	out := make([]byte, 0, total)
	for i := uint8(0); i < e.expectedCount; i++ {
		out = append(out, e.fragments[i]...)
	}
	return out
}

// reassemblyTable is an LRU-bounded table of in-flight fragment trains,
// keyed by message_id. Unlike a TTL cache, eviction here is driven by
// completion (an entry is removed the instant its last fragment arrives)
// or by LRU pressure at maxInFlightMessages, not by wall-clock expiry:
// a message_id has no useful lifetime beyond "still being assembled".
type reassemblyTable struct {
	mu sync.Mutex

	lru  *list.List
	data map[int32]*reassemblyEntry
}

func newReassemblyTable() *reassemblyTable {
	return &reassemblyTable{
		lru:  list.New(),
		data: make(map[int32]*reassemblyEntry),
	}
}

// addFragment folds one fragment into its message's reassembly entry and
// returns the fully assembled body once every fragment has arrived. It
// returns (nil, false, nil) while the train is still incomplete.
func (t *reassemblyTable) addFragment(hdr a2s.FragmentHeader, payload []byte) ([]byte, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.data[hdr.MessageID]
	if e == nil {
		e = newReassemblyEntry(hdr.FragmentCount)
		e.elem = t.lru.PushBack(hdr.MessageID)
		t.data[hdr.MessageID] = e
		t.evictOldest()
	} else {
		t.lru.MoveToBack(e.elem)
	}

	if hdr.FragmentCount != e.expectedCount {
		t.remove(hdr.MessageID)
		return nil, false, fmt.Errorf("%w: fragment count changed mid-train for message %d", a2s.ErrBrokenMessage, hdr.MessageID)
	}
	if len(e.fragments) >= maxFragmentsPerMessage {
		t.remove(hdr.MessageID)
		return nil, false, fmt.Errorf("%w: message %d exceeded fragment cap", a2s.ErrBrokenMessage, hdr.MessageID)
	}

	e.fragments[hdr.FragmentID] = payload

	if !e.complete() {
		return nil, false, nil
	}

	body := e.assemble()
	t.remove(hdr.MessageID)
	return body, true, nil
}

// remove deletes an entry from both the map and the LRU list. Callers must
// hold t.mu.
func (t *reassemblyTable) remove(id int32) {
	e, ok := t.data[id]
	if !ok {
		return
	}
	t.lru.Remove(e.elem)
	delete(t.data, id)
}

// evictOldest drops the least recently touched in-flight message once the
// table exceeds its capacity. Callers must hold t.mu.
func (t *reassemblyTable) evictOldest() {
	for len(t.data) > maxInFlightMessages {
		front := t.lru.Front()
		if front == nil {
			break
		}
		id := front.Value.(int32)
		t.lru.Remove(front)
		delete(t.data, id)
	}
}
