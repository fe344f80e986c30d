// Copyright (c) 2024 The omnimap authors.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package omnimap

// slotTag is the state of a single slot in the index table.
type slotTag uint8

const (
	// slotEmpty terminates a probe: the key being looked for is not present.
	slotEmpty slotTag = iota
	// slotDeleted is a tombstone: it does not terminate a probe.
	slotDeleted
	// slotOccupied references a live entry by ordinal.
	slotOccupied
)

// slot is a tagged value: Empty, Deleted, or Occupied(ordinal). A single
// tagged struct (rather than parallel tag/ordinal arrays) is used here for
// simplicity; both layouts satisfy the contract, and the choice is only
// observable through memory_usage (see DESIGN.md).
type slot struct {
	tag     slotTag
	ordinal int
}

// indexTable is the open-addressed, capacity-sized sequence of slots
// parallel to the entry vector's capacity.
type indexTable struct {
	buf      rawBuffer[slot]
	capacity int
}

func (t *indexTable) cap() int { return t.capacity }

// allocate acquires capacity n, all slots Empty.
func (t *indexTable) allocate(n int) error {
	if err := t.buf.allocate(n); err != nil {
		return err
	}
	t.capacity = n
	t.resetEmpty()
	return nil
}

// resetEmpty overwrites every slot in the table with Empty. slotEmpty is
// zero, so this is exactly the zero-fill the raw buffer layer exposes.
func (t *indexTable) resetEmpty() {
	t.buf.memsetDefault(t.capacity)
}

func (t *indexTable) deallocate() {
	t.buf.deallocate()
	t.capacity = 0
}

func (t *indexTable) at(i int) slot {
	return t.buf.load(i)
}

func (t *indexTable) setOccupied(i, ordinal int) {
	t.buf.store(i, slot{tag: slotOccupied, ordinal: ordinal})
}

func (t *indexTable) setDeleted(i int) {
	t.buf.store(i, slot{tag: slotDeleted})
}

// decrementOrdinalsAbove decrements every Occupied(j) slot with j > ordinal
// by one. Used after a middle removal shifts the dense entry vector left.
// O(capacity).
func (t *indexTable) decrementOrdinalsAbove(ordinal int) {
	dst := t.buf.slice(t.capacity)
	for i := range dst {
		if dst[i].tag == slotOccupied && dst[i].ordinal > ordinal {
			dst[i].ordinal--
		}
	}
}

// findSlot probes from h mod capacity looking for key k (compared via
// equal against the entries vector). It returns the slot index and,
// on a match, the ordinal of the matching entry.
//
// If no Empty slot and no match is found within capacity probes (a table
// at load 1.0), the key is reported as not found; the returned slot index
// is then not an Empty slot and must not be used for insertion.
func findSlot[K any, V any](t *indexTable, entries *entryVector[K, V], h uint64, k K, equal func(K, K) bool) (slotIndex int, ordinal int, found bool) {
	tableCap := t.capacity
	debugAssert(tableCap > 0, "findSlot: index table must be allocated")
	pos := int(h % uint64(tableCap))
	for step := 0; step < tableCap; step++ {
		s := t.at(pos)
		switch s.tag {
		case slotEmpty:
			return pos, 0, false
		case slotOccupied:
			e := entries.load(s.ordinal)
			if e.hash == h && equal(e.key, k) {
				return pos, s.ordinal, true
			}
		case slotDeleted:
			// tombstones are passed over, not reused, on this path.
		}
		pos = (pos + 1) % tableCap
	}
	// Full cycle without an Empty slot: the key is not present.
	return pos, 0, false
}

// rebuildIndex reconstructs the index from scratch for the given entries,
// assuming the index is already allocated to entries.cap() and all-Empty.
func rebuildIndex[K any, V any](t *indexTable, entries *entryVector[K, V]) {
	tableCap := t.capacity
	for i := 0; i < entries.len(); i++ {
		e := entries.load(i)
		pos := int(e.hash % uint64(tableCap))
		for {
			s := t.at(pos)
			switch s.tag {
			case slotEmpty:
				t.setOccupied(pos, i)
				goto placed
			case slotOccupied:
				pos = (pos + 1) % tableCap
			case slotDeleted:
				// A rebuild always starts from an all-Empty table; finding
				// a tombstone here means the table wasn't freshly reset.
				panic("omnimap: deleted slot encountered during rebuild")
			}
		}
	placed:
	}
}
