// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Integrity checks, gated on Config.Debug. The Go runtime uses an
// internal throw() for its equivalent checks, which a library outside
// package runtime cannot call, so this settles on a single panic-based
// assertf for invariant violations no caller is expected to recover
// from.
package boxroot

import "fmt"

func assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("boxroot: assertion failed: "+format, args...))
	}
}

// validateIfDebug runs validateRings when the allocator was built with
// Config.Debug, and is a no-op otherwise so release builds pay nothing
// for it beyond the branch.
func (a *Allocator) validateIfDebug(ts *threadState) {
	if !a.cfg.Debug {
		return
	}
	a.validateRings(ts)
}

// validateRings checks every ring-well-formedness invariant this
// package relies on: each ring holds only pools of its declared class,
// the current ring has at most one member, and each pool's free list
// terminates at its own header in exactly capacity-allocCount steps.
func (a *Allocator) validateRings(ts *threadState) {
	if ts.current != nil {
		assertf(ts.current.next == ts.current && ts.current.prev == ts.current,
			"current ring must hold at most one pool")
		a.validatePool(ts.current, classCurrent)
	}
	validateRingClass(ts.young, classYoung, a.validatePool)
	validateRingClass(ts.old, classOld, a.validatePool)
	validateRingClass(ts.free, classFree, a.validatePool)
}

func validateRingClass(head *pool, want Class, validate func(*pool, Class)) {
	ringEach(head, func(p *pool) bool {
		validate(p, want)
		return true
	})
}

// validatePool checks the count and freelist invariants for a single
// pool already known to belong to class want.
func (a *Allocator) validatePool(p *pool, want Class) {
	assertf(p.class == want, "pool class %v does not match its ring (%v)", p.class, want)

	capacity := p.capacity()
	steps := uintptr(0)
	cur := p.freeListHead
	seen := make(map[uintptr]bool, capacity)
	for cur != p.base {
		assertf(!seen[cur], "freelist cycle detected in pool %#x", p.base)
		seen[cur] = true
		cur = readSlot(cur)
		steps++
		assertf(steps <= capacity, "freelist longer than pool capacity")
	}
	assertf(steps == capacity-uintptr(p.allocCount),
		"freelist length %d does not match capacity-allocCount %d", steps, capacity-uintptr(p.allocCount))
}
