// Package queue implements the bounded, ayes-sorted waiting list each
// track maintains for referenda that have cleared preparation but have no
// free deciding slot.
package queue

import "sort"

// Entry is one waiting referendum and the ayes it was queued with.
type Entry struct {
	Index uint32
	Ayes  uint64
}

// IsOngoing reports whether the referendum backing an entry is still
// Ongoing; the caller supplies it because the queue itself does not hold
// referendum records.
type IsOngoing func(index uint32) bool

// Track is a bounded sequence of Entry sorted ascending by Ayes: the top
// of the queue (highest ayes) sits at the end of the slice and is popped
// from there.
type Track struct {
	max     uint32
	entries []Entry
}

// New constructs an empty bounded queue for one track.
func New(max uint32) *Track {
	return &Track{max: max}
}

// Restore reconstructs a queue from persisted entries, which must already
// be sorted ascending by ayes (as produced by Entries).
func Restore(max uint32, entries []Entry) *Track {
	return &Track{max: max, entries: append([]Entry(nil), entries...)}
}

// Max reports the queue's capacity.
func (t *Track) Max() uint32 { return t.max }

// Len reports the number of entries currently held.
func (t *Track) Len() int { return len(t.entries) }

// Entries returns a defensive copy of the queue contents, ascending by ayes.
func (t *Track) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

func (t *Track) insertionIndex(ayes uint64) int {
	return sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Ayes >= ayes
	})
}

// Insert adds (index, ayes) at its sorted position. If the queue is at
// capacity, the candidate is admitted only if its ayes strictly exceed the
// current minimum; admitting it evicts the minimum entry
// (force_insert_keep_right semantics). Insert reports whether the
// candidate was admitted.
func (t *Track) Insert(index uint32, ayes uint64) bool {
	pos := t.insertionIndex(ayes)
	if uint32(len(t.entries)) < t.max {
		t.entries = append(t.entries, Entry{})
		copy(t.entries[pos+1:], t.entries[pos:])
		t.entries[pos] = Entry{Index: index, Ayes: ayes}
		return true
	}
	if t.max == 0 {
		return false
	}
	if len(t.entries) == 0 || ayes <= t.entries[0].Ayes {
		return false
	}
	// Evict the minimum (index 0) and insert at the new position,
	// shifted left by one since the minimum is gone. pos >= 1 here: the
	// ayes <= entries[0].Ayes case already returned above.
	insertAt := pos - 1
	t.entries = append(t.entries[:0], t.entries[1:]...)
	t.entries = append(t.entries, Entry{})
	copy(t.entries[insertAt+1:], t.entries[insertAt:len(t.entries)-1])
	t.entries[insertAt] = Entry{Index: index, Ayes: ayes}
	return true
}

// Update locates index by linear scan (bounded by the small queue cap),
// sets its ayes, and slides it to its new sorted position. It is a no-op
// if index is not present.
func (t *Track) Update(index uint32, ayes uint64) {
	pos := -1
	for i, e := range t.entries {
		if e.Index == index {
			pos = i
			break
		}
	}
	if pos < 0 {
		return
	}
	t.entries = append(t.entries[:pos], t.entries[pos+1:]...)
	newPos := t.insertionIndex(ayes)
	t.entries = append(t.entries, Entry{})
	copy(t.entries[newPos+1:], t.entries[newPos:len(t.entries)-1])
	t.entries[newPos] = Entry{Index: index, Ayes: ayes}
}

// Remove drops index from the queue, if present.
func (t *Track) Remove(index uint32) {
	for i, e := range t.entries {
		if e.Index == index {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}

// NextForDeciding pops from the high end, discarding entries whose
// referendum is no longer Ongoing, and returns the first Ongoing entry
// found (or false if the queue is drained without finding one).
func (t *Track) NextForDeciding(ongoing IsOngoing) (Entry, bool) {
	for len(t.entries) > 0 {
		last := t.entries[len(t.entries)-1]
		t.entries = t.entries[:len(t.entries)-1]
		if ongoing(last.Index) {
			return last, true
		}
	}
	return Entry{}, false
}
