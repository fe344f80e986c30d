// Copyright (c) 2024 The omnimap authors.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package omnimap

import (
	"math"
	"unsafe"
)

// rawBuffer is a typed contiguous allocation with an explicit, unchecked
// lifecycle. It owns only the pointer: it does not track length or
// capacity, and every operation that needs a count takes it as an
// argument. The entry vector and the index table each layer their own
// bookkeeping on top of this primitive.
//
// Go's garbage collector owns the backing memory of every rawBuffer: there
// is no real free(). allocate/reallocate/deallocate instead manage the
// *handle* to that memory (the pointer field), mirroring the pointer-only
// bookkeeping style of the raw buffer described in the design notes, and
// matching the unsafe-arena idiom used elsewhere in this corpus (see
// DESIGN.md) where Free/Grow rebind pointer fields rather than releasing
// memory back to the OS. Holding ptr keeps the backing array reachable;
// clearing it (on deallocate) is what lets the GC reclaim it.
type rawBuffer[T any] struct {
	ptr unsafe.Pointer
}

// elemSize returns the size in bytes of one T.
func elemSize[T any]() uintptr {
	var zero T
	return unsafe.Sizeof(zero)
}

// maxCount is the largest element count whose byte size cannot overflow a
// platform uintptr.
func maxCount[T any]() uint64 {
	size := uint64(elemSize[T]())
	if size == 0 {
		return math.MaxUint64
	}
	return uint64(math.MaxInt64) / size
}

func (b *rawBuffer[T]) isNull() bool {
	return b.ptr == nil
}

// slice reinterprets the buffer's first n elements as a Go slice. The
// caller is responsible for n never exceeding the buffer's allocated count.
func (b *rawBuffer[T]) slice(n int) []T {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(b.ptr), n)
}

// allocate acquires a region of n values with T's natural alignment.
//
// Precondition: the buffer must be null (not currently allocated) and
// n > 0. Violating this is a logic error caught by debugAssert. The only
// error this method returns is ErrOverflow; it never returns
// ErrAllocationFailed, since a refused make fails inside the Go runtime.
func (b *rawBuffer[T]) allocate(n int) error {
	debugAssert(b.isNull(), "rawBuffer.allocate: pointer must be null")
	debugAssert(n > 0, "rawBuffer.allocate: count must be greater than zero")

	if uint64(n) > maxCount[T]() {
		return &AllocError{Kind: ErrOverflow, RequestedCount: uint64(n)}
	}

	backing := make([]T, n)
	b.ptr = unsafe.Pointer(unsafe.SliceData(backing))
	return nil
}

// reallocate allocates a new region of new_n elements, copies the first
// copy_n elements from the current region, and releases the old region.
//
// Precondition: copy_n <= old_n, copy_n <= new_n, new_n > 0.
func (b *rawBuffer[T]) reallocate(oldN, newN, copyN int) error {
	debugAssert(newN > 0, "rawBuffer.reallocate: new count must be greater than zero")
	debugAssert(copyN <= oldN, "rawBuffer.reallocate: copy count exceeds old count")
	debugAssert(copyN <= newN, "rawBuffer.reallocate: copy count exceeds new count")

	if uint64(newN) > maxCount[T]() {
		return &AllocError{Kind: ErrOverflow, RequestedCount: uint64(newN)}
	}

	newBacking := make([]T, newN)
	if copyN > 0 {
		copy(newBacking, b.slice(oldN)[:copyN])
	}
	b.ptr = unsafe.Pointer(unsafe.SliceData(newBacking))
	return nil
}

// deallocate releases the region and nulls the pointer. It does not run
// destructors on the elements; the caller must drop them first if needed.
func (b *rawBuffer[T]) deallocate() {
	b.ptr = nil
}

// store writes v at position i.
func (b *rawBuffer[T]) store(i int, v T) {
	*(*T)(unsafe.Add(b.ptr, uintptr(i)*elemSize[T]())) = v
}

// load reads the value at position i.
func (b *rawBuffer[T]) load(i int) T {
	return *(*T)(unsafe.Add(b.ptr, uintptr(i)*elemSize[T]()))
}

// loadMut returns a pointer to the value at position i, for in-place
// mutation.
func (b *rawBuffer[T]) loadMut(i int) *T {
	return (*T)(unsafe.Add(b.ptr, uintptr(i)*elemSize[T]()))
}

// read moves the value out of position i and overwrites the slot with T's
// zero value; the slot is logically uninitialized until it is re-stored.
func (b *rawBuffer[T]) read(i int) T {
	p := (*T)(unsafe.Add(b.ptr, uintptr(i)*elemSize[T]()))
	v := *p
	var zero T
	*p = zero
	return v
}

// shiftLeft moves `count` values from [at+1, at+1+count) down to
// [at, at+count), overwriting the value at `at` without dropping it first.
func (b *rawBuffer[T]) shiftLeft(at, count int) {
	if count <= 0 {
		return
	}
	dst := b.slice(at + 1 + count)
	copy(dst[at:], dst[at+1:at+1+count])
}

// memmoveOne bitwise-copies one value from `from` to `to`.
func (b *rawBuffer[T]) memmoveOne(from, to int) {
	b.store(to, b.load(from))
}

// memsetDefault writes T's zero value into positions [0, n) without
// dropping whatever was previously there.
func (b *rawBuffer[T]) memsetDefault(n int) {
	var zero T
	dst := b.slice(n)
	for i := range dst {
		dst[i] = zero
	}
}

// dropRange clears references held in [lo, hi) so the GC can reclaim them;
// the Go analogue of running destructors over a range.
func (b *rawBuffer[T]) dropRange(lo, hi int) {
	if hi <= lo {
		return
	}
	var zero T
	dst := b.slice(hi)
	for i := lo; i < hi; i++ {
		dst[i] = zero
	}
}

// makeCopy produces an independent buffer holding a copy of the first n
// elements.
func (b *rawBuffer[T]) makeCopy(n int) rawBuffer[T] {
	var out rawBuffer[T]
	if n == 0 {
		return out
	}
	abortOnAllocError(out.allocate(n))
	copy(out.slice(n), b.slice(n))
	return out
}

// debugAssert is a precondition check elided in release builds in the
// source this package was translated from; here it always runs, since
// Go has no separate debug/release build mode, but the conditions it
// checks are logic-error conditions the public API never allows a caller
// to trigger.
func debugAssert(cond bool, msg string) {
	if !cond {
		panic("omnimap: " + msg)
	}
}
