// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Per-thread pool rings and the orphan-adoption path. The shape is
// sync.Pool's: a per-context local record for the fast path, plus a
// cleanup sweep that drains abandoned state back into live contexts.
// Here a table keyed by the caller-supplied ThreadID takes the place of
// indexing by P, since this package cannot reach into the Go
// scheduler's own per-P slots (see value.go's ThreadID doc comment).
package boxroot

import "sync"

// threadState is the per-thread record: a mutex and
// four pool rings (current, young, old, free). A thread's current ring
// holds at most one pool, enforced by allocator.go.
type threadState struct {
	mu sync.Mutex

	current *pool // size <= 1
	young   *pool
	old     *pool
	free    *pool

	id ThreadID
}

func newThreadState(id ThreadID) *threadState {
	return &threadState{id: id}
}

// threadTable is the global map from ThreadID to threadState. Its mutex
// is a short-held lock protecting only membership, never held while
// operating on an individual thread's rings.
type threadTable struct {
	mu    sync.Mutex
	table map[ThreadID]*threadState
}

func newThreadTable() *threadTable {
	return &threadTable{table: make(map[ThreadID]*threadState)}
}

// get returns the threadState for id, creating it on first use.
func (t *threadTable) get(id ThreadID) *threadState {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.table[id]
	if !ok {
		ts = newThreadState(id)
		t.table[id] = ts
	}
	return ts
}

// releaseThread orphans a thread's non-free pools into the Orphaned
// pseudo-thread and frees its free ring back to the platform, then
// drops the thread's entry so a later reuse of the same ThreadID starts
// fresh.
func (a *Allocator) releaseThread(id ThreadID) {
	if id == orphanedThreadID {
		return
	}
	a.threads.mu.Lock()
	ts, ok := a.threads.table[id]
	if ok {
		delete(a.threads.table, id)
	}
	a.threads.mu.Unlock()
	if !ok {
		return
	}

	orphan := a.threads.get(orphanedThreadID)

	ts.mu.Lock()
	current, young, old, free := ts.current, ts.young, ts.old, ts.free
	ts.current, ts.young, ts.old, ts.free = nil, nil, nil, nil
	ts.mu.Unlock()

	// The released thread's current pool is folded into young rather
	// than kept as a "current" pool: the orphan pseudo-thread never
	// calls create, so nothing is ever current for it, and a
	// partially-filled pool must still be scanned on minor collections
	// exactly like a young pool until it is promoted. Its class is
	// rewritten to match, preserving the invariant that a pool's class
	// field always names the ring it currently sits in.
	if current != nil {
		current.class = classYoung
	}
	reownRing(current, orphanedThreadID)
	reownRing(young, orphanedThreadID)
	reownRing(old, orphanedThreadID)

	orphan.mu.Lock()
	ringPushFront(&orphan.young, current)
	ringPushFront(&orphan.young, young)
	ringPushFront(&orphan.old, old)
	orphan.mu.Unlock()

	a.logger.Info("thread released", idField(id))

	// Pop before releasing: release unmaps the block the ring links
	// live in.
	for free != nil {
		p := ringPop(&free)
		a.stats.liveFreePools.Sub(1)
		p.release()
	}
}

// reownRing rewrites the owner field of every pool in the ring headed
// by head to newOwner. Needed because delete's fast/slow path choice
// (allocator.go) and the remote-free accounting both key off the
// pool's owner.
func reownRing(head *pool, newOwner ThreadID) {
	ringEach(head, func(p *pool) bool {
		p.setOwner(newOwner)
		return true
	})
}

// adoptOrphans drains the Orphaned pseudo-thread's rings into ts, the
// calling thread's rings. Only the first scan to observe a non-empty
// orphan ring after the orphaning event performs the adoption; later
// scans on other threads find the orphan rings already empty. This
// favors the simpler first-scan-wins rule over NUMA-aware balancing,
// the same rule sync.Pool's GC-time cleanup applies: one unconditional
// sweep, no load balancing across contexts.
func (a *Allocator) adoptOrphans(ts *threadState) {
	if ts.id == orphanedThreadID {
		return
	}
	orphan := a.threads.get(orphanedThreadID)
	if orphan == ts {
		return
	}

	orphan.mu.Lock()
	current, young, old, free := orphan.current, orphan.young, orphan.old, orphan.free
	orphan.current, orphan.young, orphan.old, orphan.free = nil, nil, nil, nil
	orphan.mu.Unlock()

	if current == nil && young == nil && old == nil && free == nil {
		return
	}

	reownRing(current, ts.id)
	reownRing(young, ts.id)
	reownRing(old, ts.id)
	reownRing(free, ts.id)

	ringPushFront(&ts.young, current)
	ringPushFront(&ts.young, young)
	ringPushFront(&ts.old, old)
	ringPushFront(&ts.free, free)

	a.logger.Info("orphaned pools adopted", idField(ts.id))
}
