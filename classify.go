// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Pool class state machine. Reclassification is driven by hysteresis,
// the way the runtime's GC work buffers only change queues once they
// cross a size threshold rather than on every single put/get, here
// applied to whole pools instead of individual buffers.
package boxroot

import "fmt"

// valueKind is the three-way classification of a value about to be
// stored in, or already sitting in, a slot.
type valueKind uint8

const (
	kindImmediate valueKind = iota
	kindYoung
	kindOld
)

func classifyValue(host Host, v Value) valueKind {
	if !host.IsBlock(v) {
		return kindImmediate
	}
	if IsYoung(host, v) {
		return kindYoung
	}
	return kindOld
}

// fullnessBucket buckets a pool's allocCount into one of a small number
// of occupancy levels relative to threshold. Crossing a bucket boundary
// is what triggers a ring-placement change, so an allocation or
// deletion that does not cross a boundary never touches the ring at
// all.
type fullnessBucket uint8

const (
	bucketEmpty fullnessBucket = iota
	bucketLow
	bucketHigh
)

// fullnessBucketOf reports which bucket allocCount falls into relative
// to the configured threshold (in slots).
func fullnessBucketOf(allocCount int32, threshold uintptr) fullnessBucket {
	switch {
	case allocCount == 0:
		return bucketEmpty
	case uintptr(allocCount) <= threshold:
		return bucketLow
	default:
		return bucketHigh
	}
}

// tryDemotePool runs after a delete crosses a threshold boundary
// downward: it moves the pool to the front of its current ring (so the
// next allocator scanning for space finds it first) or reclassifies it
// to Free if it emptied out completely. ts must be the pool's owning
// thread's state, held by the caller's lock.
func (a *Allocator) tryDemotePool(ts *threadState, p *pool) {
	if p == ts.current {
		// The current pool is never reclassified by delete; it only
		// changes class when it is filled (allocator.go's slow path).
		return
	}
	bucket := fullnessBucketOf(p.allocCount, a.thresholdSlots)
	if bucket != bucketEmpty {
		a.moveToFront(ts, p)
		return
	}
	a.removeFromRing(ts, p)
	p.class = classFree
	ringPushFront(&ts.free, p)
	a.stats.liveFreePools.Add(1)
}

// moveToFront relocates p to the front of the ring matching its current
// class, a cheap O(1) ring splice that does not change p's class.
func (a *Allocator) moveToFront(ts *threadState, p *pool) {
	a.removeFromRing(ts, p)
	switch p.class {
	case classYoung:
		ringPushFront(&ts.young, p)
	case classOld:
		ringPushFront(&ts.old, p)
	case classFree:
		ringPushFront(&ts.free, p)
	}
}

// removeFromRing splices p out of whichever of ts's rings currently
// contains it, leaving p as a ring of one.
func (a *Allocator) removeFromRing(ts *threadState, p *pool) {
	var head **pool
	switch p.class {
	case classYoung:
		head = &ts.young
	case classOld:
		head = &ts.old
	case classFree:
		head = &ts.free
	default:
		return
	}
	if *head == p {
		ringPop(head)
		return
	}
	sole, newHead := ringRemove(p)
	if sole {
		return
	}
	_ = newHead
}

// findAvailablePool produces the next pool to allocate from: pop from
// young if the head of that ring still has a free slot, or from old if
// it is not too full, else from free, else allocate a fresh pool from
// the platform. A platform allocation failure is reported as
// ErrOutOfMemory.
func (a *Allocator) findAvailablePool(ts *threadState) (*pool, error) {
	if ts.young != nil && uintptr(ts.young.allocCount) < ts.young.capacity() {
		return ringPop(&ts.young), nil
	}
	if ts.old != nil && fullnessBucketOf(ts.old.allocCount, a.thresholdSlots) != bucketHigh {
		return ringPop(&ts.old), nil
	}
	if ts.free != nil {
		a.stats.liveFreePools.Sub(1)
		return ringPop(&ts.free), nil
	}
	p, err := newPool(a.poolSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}
	a.stats.allocatedPools.Add(1)
	return p, nil
}
