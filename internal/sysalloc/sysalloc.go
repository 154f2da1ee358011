// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sysalloc hands out page-aligned, size-aligned blocks of raw
// memory for the pool allocator, the same way runtime/mfixalloc.go's
// persistentalloc hands chunks to fixalloc. The memory returned here is
// never touched by the Go garbage collector: callers must only store
// uintptr values into it, never unsafe.Pointer, exactly as
// runtime/mgcwork.go's workbuf avoids write barriers.
package sysalloc

import (
	"fmt"
	"sync/atomic"
)

// AllocAlignedPool returns the address of a block of size bytes aligned
// to size (size must be a power of two), or an error if the underlying
// platform allocator failed. The caller treats size as both the pool
// size and the alignment, so that masking an address within the block
// with ^(size-1) recovers the block's base address in O(1).
func AllocAlignedPool(size uintptr) (uintptr, error) {
	if size == 0 || size&(size-1) != 0 {
		return 0, fmt.Errorf("sysalloc: size %d is not a power of two", size)
	}
	return allocAlignedPool(size)
}

// FreePool releases a block previously returned by AllocAlignedPool.
func FreePool(addr, size uintptr) {
	freePool(addr, size)
}

// Counter is a relaxed-ordering fetch-add counter, the Go-library
// equivalent of runtime/internal/atomic's counters used throughout
// mstats. Every access is atomic, with no ordering promised across
// racing adds; these counters are advisory, never load-bearing.
type Counter struct {
	v uint64
}

// Add adds delta to the counter and returns nothing; counters here are
// write-mostly and read only for statistics, never for correctness
// decisions.
func (c *Counter) Add(delta uint64) {
	atomic.AddUint64(&c.v, delta)
}

// Sub subtracts delta from the counter.
func (c *Counter) Sub(delta uint64) {
	atomic.AddUint64(&c.v, ^(delta - 1))
}

// Load reads the counter's current value.
func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.v)
}
