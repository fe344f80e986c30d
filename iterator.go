// Copyright (c) 2024 The omnimap authors.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package omnimap

// Iterator walks a Map's entries in insertion order. It is a simple cursor
// over the dense entry vector: call Next and, each time it returns true,
// read Key/Value; stop when it returns false.
//
// An Iterator is invalidated by any mutating operation on the Map it was
// created from; using it afterwards has undefined results, per the
// package's non-goals (no stable iterator invalidation).
type Iterator[K any, V any] struct {
	m   *Map[K, V]
	pos int
	cur entry[K, V]
}

// Next advances the iterator. It returns false once every entry has been
// visited.
func (it *Iterator[K, V]) Next() bool {
	if it.pos >= it.m.entries.len() {
		return false
	}
	it.cur = it.m.entries.load(it.pos)
	it.pos++
	return true
}

// Key returns the current entry's key. Valid only after Next returned true.
func (it *Iterator[K, V]) Key() K { return it.cur.key }

// Value returns the current entry's value. Valid only after Next returned
// true.
func (it *Iterator[K, V]) Value() V { return it.cur.value }

// Iter returns an Iterator over (key, value) pairs in insertion order.
func (m *Map[K, V]) Iter() *Iterator[K, V] {
	return &Iterator[K, V]{m: m}
}

// MutIterator walks a Map's entries in insertion order, yielding a mutable
// pointer to each value in turn. Like Iterator, it is invalidated by any
// mutating operation on the underlying Map.
type MutIterator[K any, V any] struct {
	m   *Map[K, V]
	pos int
	key K
}

// Next advances the iterator. It returns false once every entry has been
// visited.
func (it *MutIterator[K, V]) Next() bool {
	if it.pos >= it.m.entries.len() {
		return false
	}
	it.key = it.m.entries.load(it.pos).key
	it.pos++
	return true
}

// Key returns the current entry's key. Valid only after Next returned true.
func (it *MutIterator[K, V]) Key() K { return it.key }

// Value returns a mutable pointer to the current entry's value. Valid only
// after Next returned true.
func (it *MutIterator[K, V]) Value() *V {
	return &it.m.entries.loadMut(it.pos - 1).value
}

// IterMut returns a MutIterator over (key, *value) pairs in insertion order.
func (m *Map[K, V]) IterMut() *MutIterator[K, V] {
	return &MutIterator[K, V]{m: m}
}

// IterKeys collects the keys in insertion order.
func (m *Map[K, V]) IterKeys() []K {
	out := make([]K, 0, m.Len())
	it := m.Iter()
	for it.Next() {
		out = append(out, it.Key())
	}
	return out
}

// IterValues collects the values in insertion order.
func (m *Map[K, V]) IterValues() []V {
	out := make([]V, 0, m.Len())
	it := m.Iter()
	for it.Next() {
		out = append(out, it.Value())
	}
	return out
}

// Drain removes and returns every entry in insertion order, leaving the
// map empty but with its capacity intact. This is the consuming analogue
// of into_iter: ownership of every (key, value) pair moves to the caller
// as it is produced.
func (m *Map[K, V]) Drain() []struct {
	Key   K
	Value V
} {
	out := make([]struct {
		Key   K
		Value V
	}, 0, m.Len())
	for {
		k, v, ok := m.PopFront()
		if !ok {
			break
		}
		out = append(out, struct {
			Key   K
			Value V
		}{Key: k, Value: v})
	}
	return out
}
