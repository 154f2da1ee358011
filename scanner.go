// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// GC-facing scan pass: a cheap young-specialized walk for minor
// collections and a generic free-list-skipping walk for major ones,
// the same hot-mode/cold-mode split the runtime's GC work-buffer
// draining uses.
package boxroot

import (
	"time"

	"go.uber.org/zap"
)

// VisitorFunc is supplied by the host's collector and invoked once per
// live (non-free-list) slot visited during a scan. It returns the value
// that should be written back into the slot: ordinarily v itself, or
// the relocated block address if the host's collector moved the
// referent while the scan was holding it.
type VisitorFunc func(host Host, v Value) Value

// Scan performs one collection pass on behalf of thread tid. It first
// merges any delayed (cross-thread) frees and adopts orphaned pools
// left behind by a terminated thread, then visits every
// live slot reachable from the pools the requested mode covers:
//
//   - minor: the thread's current pool plus its young ring only, using
//     the young-specialized per-pool scan (see scanPoolYoung), followed
//     by promoting the current and young pools to old.
//   - major: minor's coverage plus the old ring, using the generic
//     per-pool scan, followed by reclaiming any old pool that holds no
//     live slot and releasing the free ring to the platform. A major
//     scan does not promote young pools.
//
// The caller must hold whatever host-side synchronization stops other
// threads from concurrently calling Create/Delete/Modify against tid's
// own rings; Scan takes ts.mu itself but that only protects this
// package's bookkeeping, not the host's use of slot values mid-visit.
func (a *Allocator) Scan(tid ThreadID, visitor VisitorFunc, minor bool) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		a.stats.scanNanos.Add(uint64(elapsed.Nanoseconds()))
		a.logger.Debug("scan complete", zap.Bool("minor", minor), zap.Duration("elapsed", elapsed))
	}()

	ts := a.threads.get(tid)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	a.validateIfDebug(ts)

	a.adoptOrphans(ts)
	a.drainAll(ts)

	scanOne := a.scanPoolGeneric
	if minor {
		scanOne = a.scanPoolYoung
	}

	if ts.current != nil {
		scanOne(ts.current, visitor)
	}
	ringEach(ts.young, func(p *pool) bool { scanOne(p, visitor); return true })

	if minor {
		a.stats.minorScans.Add(1)
		a.promoteYoung(ts)
		a.validateIfDebug(ts)
		return
	}

	a.stats.majorScans.Add(1)
	ringEach(ts.old, func(p *pool) bool { scanOne(p, visitor); return true })
	a.reclaimEmptyOld(ts)
	a.releaseFreeRing(ts)
	a.validateIfDebug(ts)
}

// scanPoolGeneric visits every live slot in p. A slot's contents pass
// isPoolMember when they are a free-list link or the free-list
// terminator rather than a value the host ever stored; those are
// skipped with that one comparison instead of a separate occupancy
// bitmap. Used for major scans, where old pools may hold values
// anywhere in the host's address space.
func (a *Allocator) scanPoolGeneric(p *pool, visitor VisitorFunc) {
	capacity := p.capacity()
	for i := uintptr(0); i < capacity; i++ {
		addr := p.slotAddr(i)
		v := p.getSlot(i)
		if isPoolMember(v, p) {
			continue
		}
		if nv := visitor(a.host, Value(v)); uintptr(nv) != v {
			writeSlot(addr, uintptr(nv))
		}
	}
	a.stats.scannedSlots.Add(uint64(capacity))
}

// scanPoolYoung is the young-specialized scan: rather than testing
// isPoolMember on every slot, it tests only whether the slot's raw
// contents fall within the host's young-generation address range. This
// is cheap, one unsigned subtract-and-compare, and correct because
// pool memory itself is obtained from the platform allocator outside
// the host's managed heap, so a free-list link or the terminator
// sentinel can never alias into the young range. Minor collections are
// by far the most frequent, so this path never pays for the
// pool-membership mask on slots that plainly are not young pointers.
func (a *Allocator) scanPoolYoung(p *pool, visitor VisitorFunc) {
	capacity := p.capacity()
	for i := uintptr(0); i < capacity; i++ {
		addr := p.slotAddr(i)
		v := p.getSlot(i)
		if !IsYoung(a.host, Value(v)) {
			continue
		}
		if nv := visitor(a.host, Value(v)); uintptr(nv) != v {
			writeSlot(addr, uintptr(nv))
		}
	}
	a.stats.scannedSlots.Add(uint64(capacity))
}

// drainAll merges every pool's delayed free list into its main free
// list before the scan walks any slots, so that a just-deleted remote
// slot is recognized as free rather than visited as if still live. A
// pool whose remote frees emptied it is reclassified to Free; one whose
// fullness dropped across the threshold moves to the front of its ring,
// the same placement an owner-thread delete would have produced.
func (a *Allocator) drainAll(ts *threadState) {
	if ts.current != nil {
		ts.current.drainDelayed()
	}
	var emptied, demoted []*pool
	drain := func(p *pool) bool {
		n := p.drainDelayed()
		if n == 0 {
			return true
		}
		switch {
		case p.allocCount == 0:
			emptied = append(emptied, p)
		case fullnessBucketOf(p.allocCount, a.thresholdSlots) != fullnessBucketOf(p.allocCount+int32(n), a.thresholdSlots):
			demoted = append(demoted, p)
		}
		return true
	}
	ringEach(ts.young, drain)
	ringEach(ts.old, drain)
	for _, p := range demoted {
		a.moveToFront(ts, p)
	}
	for _, p := range emptied {
		a.removeFromRing(ts, p)
		p.class = classFree
		ringPushFront(&ts.free, p)
		a.stats.liveFreePools.Add(1)
	}
}

// promoteYoung reclassifies every pool in ts.young (plus ts.current, if
// any) to old and concatenates the whole lot onto ts.old in
// O(pool-count), a ring-splice instead of moving pools one at a time.
// Every surviving young reference has just been rewritten in place by
// the host's visitor to point at its post-promotion (old) address, so
// nothing below needs to inspect a single slot. ts.current is cleared
// here so the next Create grows a fresh replacement pool rather than
// continuing to bump-allocate into a pool that is now old.
func (a *Allocator) promoteYoung(ts *threadState) {
	if ts.current != nil {
		current := ts.current
		ts.current = nil
		current.class = classYoung
		ringPushFront(&ts.young, current)
	}
	if ts.young == nil {
		return
	}
	young := ts.young
	ts.young = nil
	count := uint64(0)
	ringEach(young, func(p *pool) bool {
		p.class = classOld
		count++
		return true
	})
	ringPushFront(&ts.old, young)
	a.stats.promotedPools.Add(count)
}

// reclaimEmptyOld moves any old pool a major scan found to hold zero
// live slots into the free ring. Owner-thread deletes (tryDemotePool)
// and drained remote deletes (drainAll) already move a pool to free the
// moment they empty it; this catches old pools that reached zero
// without either, such as a current pool emptied and then promoted at a
// minor scan.
func (a *Allocator) reclaimEmptyOld(ts *threadState) {
	if ts.old == nil {
		return
	}
	var empties []*pool
	ringEach(ts.old, func(p *pool) bool {
		if p.allocCount == 0 {
			empties = append(empties, p)
		}
		return true
	})
	for _, p := range empties {
		a.removeFromRing(ts, p)
		p.class = classFree
		ringPushFront(&ts.free, p)
		a.stats.liveFreePools.Add(1)
	}
	a.stats.reclaimedPools.Add(uint64(len(empties)))
}

// releaseFreeRing gives every pool currently classified Free back to the
// platform allocator and empties ts.free. Pools become Free as soon as
// their last live slot is deleted (tryDemotePool, classify.go); the
// actual munmap/madvise work of returning that memory to the platform
// is deferred to here, the major-scan boundary, rather than performed
// eagerly on the delete fast path (see DESIGN.md).
func (a *Allocator) releaseFreeRing(ts *threadState) {
	// Pop each pool before releasing it: release unmaps the block the
	// ring links live in, so the next pool must be reached first.
	for ts.free != nil {
		p := ringPop(&ts.free)
		a.stats.liveFreePools.Sub(1)
		p.release()
	}
}
