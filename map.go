// Copyright (c) 2024 The omnimap authors.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package omnimap implements an insertion-ordered associative container: a
// mapping from keys to values that preserves insertion order, supports
// positional access by that order, and provides amortized O(1) keyed
// lookup, insert, and update.
//
// A Map is built from two pieces, both layered over a raw typed buffer: a
// dense entry vector holding (key, value, hash) triples in insertion order,
// and an open-addressed index table, keyed by hash, mapping to positions in
// that vector. Capacity changes reallocate both in lockstep and rebuild the
// index; tombstones left by removal are only reclaimed on a grow, a shrink
// or a Clear.
//
// Allocation failure is fatal: an operation that cannot allocate panics
// rather than returning an error.
//
// Map is not safe for concurrent use. It is exclusively owned by whoever
// holds it; any mutating operation invalidates references previously
// returned by Get/GetMut/First/Last/At/AtMut.
package omnimap

import (
	"math"
	"math/bits"
)

const loadFactorThreshold = 0.75

// Map is an insertion-ordered, hash-indexed associative container.
type Map[K any, V any] struct {
	entries entryVector[K, V]
	index   indexTable
	deleted int
	hash    func(K) uint64
	equal   func(K, K) bool
}

// New creates an empty Map. No allocation happens until the first insert.
// hash must be deterministic for equal keys; equal must be a genuine
// equivalence relation consistent with hash (equal keys must hash equal).
func New[K any, V any](hash func(K) uint64, equal func(K, K) bool) *Map[K, V] {
	return &Map[K, V]{hash: hash, equal: equal}
}

// NewComparable is a convenience constructor for key types with Go's
// built-in equality.
func NewComparable[K comparable, V any](hash func(K) uint64) *Map[K, V] {
	return New[K, V](hash, func(a, b K) bool { return a == b })
}

// WithCapacity creates an empty Map, pre-allocating capacity n.
func WithCapacity[K any, V any](n int, hash func(K) uint64, equal func(K, K) bool) *Map[K, V] {
	m := New[K, V](hash, equal)
	if n > 0 {
		abortOnAllocError(m.allocateAt(n))
	}
	return m
}

// Cap returns the current capacity.
func (m *Map[K, V]) Cap() int { return m.entries.cap() }

// Len returns the current number of entries.
func (m *Map[K, V]) Len() int { return m.entries.len() }

// IsEmpty reports whether the map holds no entries.
func (m *Map[K, V]) IsEmpty() bool { return m.entries.isEmpty() }

// CurrentLoad returns (length + deleted) / capacity, or 0 for an
// unallocated map.
func (m *Map[K, V]) CurrentLoad() float64 {
	c := m.entries.cap()
	if c == 0 {
		return 0
	}
	return float64(m.entries.len()+m.deleted) / float64(c)
}

// MemoryUsage returns the approximate resident size in bytes of the
// entries buffer and the index buffer, at their allocated (not just live)
// capacity, matching the Rust implementation this package was distilled
// from.
func (m *Map[K, V]) MemoryUsage() uintptr {
	var e entry[K, V]
	var s slot
	return uintptr(m.entries.cap())*sizeOf(e) + uintptr(m.index.cap())*sizeOf(s)
}

func sizeOf[T any](v T) uintptr { return elemSize[T]() }

// allocateAt allocates both the entry vector and the index table at
// capacity n, assuming the map is currently unallocated.
func (m *Map[K, V]) allocateAt(n int) error {
	if err := m.entries.reallocate(n); err != nil {
		return err
	}
	if err := m.index.allocate(n); err != nil {
		m.entries.drop()
		return err
	}
	return nil
}

// ensureCapacity is the pre-insert hook: it allocates on first use and
// grows when the pre-insert load factor would exceed the threshold.
func (m *Map[K, V]) ensureCapacity() {
	if m.entries.cap() == 0 {
		abortOnAllocError(m.allocateAt(1))
		return
	}
	c := m.entries.cap()
	preInsertLoad := float64(m.entries.len()+m.deleted) / float64(c)
	if preInsertLoad <= loadFactorThreshold {
		return
	}
	newCap := nextPow2(ceilDiv(c, loadFactorThreshold))
	abortOnAllocError(m.growTo(newCap))
}

// growTo reallocates the entry vector to newCap, replaces the index with a
// fresh all-Empty index of the same size, rebuilds it from the entries,
// and resets the tombstone counter.
func (m *Map[K, V]) growTo(newCap int) error {
	if err := m.entries.reallocate(newCap); err != nil {
		return err
	}
	m.index.deallocate()
	if err := m.index.allocate(newCap); err != nil {
		return err
	}
	rebuildIndex(&m.index, &m.entries)
	m.deleted = 0
	return nil
}

func ceilDiv(c int, factor float64) int {
	return int(math.Ceil(float64(c) / factor))
}

const maxInt = int(^uint(0) >> 1)

// nextPow2 returns the smallest power of two >= n, saturating at the
// platform's max int on overflow.
func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	shift := bits.Len(uint(n - 1))
	if shift >= bits.UintSize-1 {
		return maxInt
	}
	return 1 << shift
}

// Insert associates key with value. If key was already present, the prior
// value is returned with ok=true; otherwise ok is false.
func (m *Map[K, V]) Insert(key K, value V) (old V, ok bool) {
	m.ensureCapacity()
	h := m.hash(key)
	slotIdx, ordinal, found := findSlot(&m.index, &m.entries, h, key, m.equal)
	if found {
		e := m.entries.loadMut(ordinal)
		old = e.value
		e.value = value
		return old, true
	}
	m.entries.push(entry[K, V]{key: key, value: value, hash: h})
	m.index.setOccupied(slotIdx, m.entries.len()-1)
	return old, false
}

// Get returns the value associated with key, if present.
func (m *Map[K, V]) Get(key K) (V, bool) {
	var zero V
	if m.entries.isEmpty() {
		return zero, false
	}
	h := m.hash(key)
	_, ordinal, found := findSlot(&m.index, &m.entries, h, key, m.equal)
	if !found {
		return zero, false
	}
	return m.entries.load(ordinal).value, true
}

// GetMut returns a pointer to the value associated with key, if present.
// The pointer is invalidated by any subsequent mutating operation.
func (m *Map[K, V]) GetMut(key K) (*V, bool) {
	if m.entries.isEmpty() {
		return nil, false
	}
	h := m.hash(key)
	_, ordinal, found := findSlot(&m.index, &m.entries, h, key, m.equal)
	if !found {
		return nil, false
	}
	return &m.entries.loadMut(ordinal).value, true
}

// First returns the first entry in insertion order.
func (m *Map[K, V]) First() (key K, value V, ok bool) {
	e, ok := m.entries.first()
	return e.key, e.value, ok
}

// Last returns the last entry in insertion order.
func (m *Map[K, V]) Last() (key K, value V, ok bool) {
	e, ok := m.entries.last()
	return e.key, e.value, ok
}

// At returns the value at ordinal i in insertion order. It panics if i is
// out of range.
func (m *Map[K, V]) At(i int) V {
	if i < 0 || i >= m.entries.len() {
		panic("omnimap: index out of range")
	}
	return m.entries.load(i).value
}

// AtMut returns a mutable pointer to the value at ordinal i. It panics if i
// is out of range.
func (m *Map[K, V]) AtMut(i int) *V {
	if i < 0 || i >= m.entries.len() {
		panic("omnimap: index out of range")
	}
	return &m.entries.loadMut(i).value
}

// Remove deletes key from the map and returns its value, if present.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	var zero V
	if m.entries.isEmpty() {
		return zero, false
	}
	h := m.hash(key)
	slotIdx, ordinal, found := findSlot(&m.index, &m.entries, h, key, m.equal)
	if !found {
		return zero, false
	}
	m.index.setDeleted(slotIdx)
	m.deleted++

	length := m.entries.len()
	if ordinal == length-1 {
		e, _ := m.entries.pop()
		return e.value, true
	}
	e := m.entries.remove(ordinal)
	m.index.decrementOrdinalsAbove(ordinal)
	return e.value, true
}

// PopFront removes and returns the first entry in insertion order.
func (m *Map[K, V]) PopFront() (key K, value V, ok bool) {
	if m.entries.isEmpty() {
		return key, value, false
	}
	first, _ := m.entries.first()
	slotIdx, _, found := findSlot(&m.index, &m.entries, first.hash, first.key, m.equal)
	debugAssert(found, "PopFront: first entry must be indexed")
	m.index.setDeleted(slotIdx)
	m.deleted++

	e, _ := m.entries.popFront()
	if m.entries.len() > 0 {
		m.index.decrementOrdinalsAbove(0)
	}
	return e.key, e.value, true
}

// Pop removes and returns the last entry in insertion order.
func (m *Map[K, V]) Pop() (key K, value V, ok bool) {
	if m.entries.isEmpty() {
		return key, value, false
	}
	last, _ := m.entries.last()
	slotIdx, _, found := findSlot(&m.index, &m.entries, last.hash, last.key, m.equal)
	debugAssert(found, "Pop: last entry must be indexed")
	m.index.setDeleted(slotIdx)
	m.deleted++

	e, _ := m.entries.pop()
	return e.key, e.value, true
}

// Reserve grows capacity by exactly n.
func (m *Map[K, V]) Reserve(n int) {
	if n <= 0 {
		return
	}
	if m.entries.cap() == 0 {
		abortOnAllocError(m.allocateAt(n))
		return
	}
	abortOnAllocError(m.growTo(m.entries.cap() + n))
}

// ShrinkTo reduces capacity to n. n must satisfy length <= n < capacity;
// otherwise this is a no-op.
func (m *Map[K, V]) ShrinkTo(n int) {
	if n < m.entries.len() || n >= m.entries.cap() {
		return
	}
	if n == 0 {
		m.entries.drop()
		m.index.deallocate()
		m.deleted = 0
		return
	}
	abortOnAllocError(m.growTo(n))
}

// ShrinkToFit reduces capacity to exactly length.
func (m *Map[K, V]) ShrinkToFit() {
	m.ShrinkTo(m.entries.len())
}

// Clear drops all entries but keeps the current capacity.
func (m *Map[K, V]) Clear() {
	m.entries.clear()
	if m.index.cap() > 0 {
		m.index.resetEmpty()
	}
	m.deleted = 0
}

// CloneCompact produces a new map with capacity equal to length, a compact
// copy of the entries, and a freshly rebuilt index. Tombstones do not
// survive.
func (m *Map[K, V]) CloneCompact() *Map[K, V] {
	out := &Map[K, V]{hash: m.hash, equal: m.equal}
	out.entries = m.entries.cloneCompact()
	if out.entries.len() > 0 {
		abortOnAllocError(out.index.allocate(out.entries.len()))
		rebuildIndex(&out.index, &out.entries)
	}
	return out
}
