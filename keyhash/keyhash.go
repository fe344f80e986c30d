// Copyright (c) 2024 The omnimap authors.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package keyhash provides a default hasher for the common comparable key
// kinds, for use with omnimap.New. It is a convenience: omnimap itself
// requires only a func(K) uint64, and any such function works.
package keyhash

import (
	"encoding/binary"
	"hash/maphash"
	"math"
)

// Hasher hashes values of K into the 64-bit space omnimap's index table
// probes over. A single Hasher is seeded once and may be shared across
// many maps; maphash.Seed is safe for concurrent use by multiple goroutines
// (only the Map built on top of it is not).
type Hasher struct {
	seed maphash.Seed
}

// NewHasher creates a Hasher with a fresh random seed. Hash values are only
// stable for the lifetime of the Hasher; they must never be persisted.
func NewHasher() *Hasher {
	return &Hasher{seed: maphash.MakeSeed()}
}

func (h *Hasher) hashBytes(b []byte) uint64 {
	var mh maphash.Hash
	mh.SetSeed(h.seed)
	mh.Write(b)
	return mh.Sum64()
}

// String returns a hash function for string keys.
func (h *Hasher) String() func(string) uint64 {
	return func(s string) uint64 {
		var mh maphash.Hash
		mh.SetSeed(h.seed)
		mh.WriteString(s)
		return mh.Sum64()
	}
}

// Bytes returns a hash function for []byte keys.
func (h *Hasher) Bytes() func([]byte) uint64 {
	return h.hashBytes
}

// Int returns a hash function for int keys.
func (h *Hasher) Int() func(int) uint64 {
	return func(k int) uint64 {
		return h.hashUint64(uint64(k))
	}
}

// Int32 returns a hash function for int32 keys.
func (h *Hasher) Int32() func(int32) uint64 {
	return func(k int32) uint64 {
		return h.hashUint32(uint32(k))
	}
}

// Int64 returns a hash function for int64 keys.
func (h *Hasher) Int64() func(int64) uint64 {
	return func(k int64) uint64 {
		return h.hashUint64(uint64(k))
	}
}

// Uint returns a hash function for uint keys.
func (h *Hasher) Uint() func(uint) uint64 {
	return func(k uint) uint64 {
		return h.hashUint64(uint64(k))
	}
}

// Uint32 returns a hash function for uint32 keys.
func (h *Hasher) Uint32() func(uint32) uint64 {
	return h.hashUint32
}

// Uint64 returns a hash function for uint64 keys.
func (h *Hasher) Uint64() func(uint64) uint64 {
	return h.hashUint64
}

// Float64 returns a hash function for float64 keys.
func (h *Hasher) Float64() func(float64) uint64 {
	return func(k float64) uint64 {
		return h.hashUint64(math.Float64bits(k))
	}
}

// Bool returns a hash function for bool keys.
func (h *Hasher) Bool() func(bool) uint64 {
	return func(k bool) uint64 {
		if k {
			return h.hashUint64(1)
		}
		return h.hashUint64(0)
	}
}

func (h *Hasher) hashUint64(v uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return h.hashBytes(buf[:])
}

func (h *Hasher) hashUint32(v uint32) uint64 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return h.hashBytes(buf[:])
}
