// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boxroot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testConfig keeps pools small (256 bytes) so capacity-spanning tests
// run fast without needing thousands of handles.
func testConfig() Config {
	return Config{
		PoolLogSize:         8,
		DeallocThresholdLog: 7,
		Debug:               true,
	}
}

func newTestAllocator(t *testing.T) (*Allocator, *fakeHost) {
	t.Helper()
	h := newFakeHost()
	a, err := NewAllocator(h, testConfig())
	require.NoError(t, err)
	t.Cleanup(a.teardown)
	return a, h
}

func TestNewAllocatorRejectsNilHost(t *testing.T) {
	_, err := NewAllocator(nil, DefaultConfig())
	require.ErrorIs(t, err, errNilHost)
}

func TestNewAllocatorRejectsInvalidConfig(t *testing.T) {
	h := newFakeHost()
	_, err := NewAllocator(h, Config{PoolLogSize: 2})
	require.Error(t, err)
}

// TestCapacityRoundTrip is scenario S1: create Capacity+1 handles holding
// integers 0..Capacity, get each back unchanged, then delete all.
func TestCapacityRoundTrip(t *testing.T) {
	a, _ := newTestAllocator(t)
	const tid ThreadID = 1

	cap := int(capacityFor(a.poolSize))
	handles := make([]Boxroot, cap+1)
	for i := 0; i <= cap; i++ {
		h, err := a.Create(tid, Value(i<<1)) // even => a block outside the young range under fakeHost
		require.NoError(t, err)
		handles[i] = h
	}
	for i, h := range handles {
		require.Equal(t, Value(i<<1), a.Get(h))
	}

	for _, h := range handles {
		a.Delete(tid, h)
	}

	ts := a.threads.get(tid)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.True(t, ringIsEmpty(ts.young), "young ring should be empty once everything is deleted")
}

// TestModifyReclassification is scenario S3: modify an old-pointer slot
// to a young pointer, and expect the pool to move into the young ring;
// a further modify to an immediate overwrites in place.
func TestModifyReclassification(t *testing.T) {
	a, h := newTestAllocator(t)
	const tid ThreadID = 1

	oldPtr := Value(0x9000)
	cap := int(capacityFor(a.poolSize))
	var first Boxroot
	for i := 0; i < cap; i++ {
		handle, err := a.Create(tid, oldPtr)
		require.NoError(t, err)
		if i == 0 {
			first = handle
		}
	}
	// One more create overflows the pool into the young ring.
	_, err := a.Create(tid, oldPtr)
	require.NoError(t, err)

	// A minor scan promotes the full (young) pool to old.
	a.Scan(tid, func(host Host, v Value) Value { return v }, true)

	p := poolOf(uintptr(first), a.poolSize)
	require.Equal(t, classOld, p.class, "filled pool should have been promoted to old")

	youngPtr := Value((h.youngStart + h.youngEnd) / 2)
	a.Modify(tid, &first, youngPtr)
	require.Equal(t, youngPtr, a.Get(first))
	require.Equal(t, classYoung, p.class, "modifying an old pool to hold a young value must demote it")

	immediate := Value(0x07) // odd => immediate under fakeHost
	a.Modify(tid, &first, immediate)
	require.Equal(t, immediate, a.Get(first))
	require.Equal(t, classYoung, p.class, "immediate overwrite must not change the pool's class")
}

// TestRemoteDelete is scenario S4: thread A creates handles, thread B
// deletes some of them, and thread A's next scan observes them freed.
func TestRemoteDelete(t *testing.T) {
	a, _ := newTestAllocator(t)
	const threadA ThreadID = 1
	const threadB ThreadID = 2

	handles := make([]Boxroot, 10)
	for i := range handles {
		h, err := a.Create(threadA, Value(i<<1))
		require.NoError(t, err)
		handles[i] = h
	}

	for i := 0; i < 5; i++ {
		a.Delete(threadB, handles[i])
	}

	tsA := a.threads.get(threadA)
	tsA.mu.Lock()
	p := tsA.current
	tsA.mu.Unlock()
	require.NotNil(t, p)

	p.delayedMu.Lock()
	hasDelayed := p.delayedHead != 0
	p.delayedMu.Unlock()
	require.True(t, hasDelayed, "remote delete must not touch the main free list directly")

	a.Scan(threadA, func(host Host, v Value) Value { return v }, true)

	free := 0
	ringEach(p, func(pp *pool) bool {
		cur := pp.freeListHead
		for cur != pp.base {
			free++
			cur = readSlot(cur)
		}
		return true
	})
	require.Equal(t, int(p.capacity())-5, free)
}

// TestOrphaning is scenario S5: a thread creates handles and releases
// itself; the next thread to scan adopts its pools.
func TestOrphaning(t *testing.T) {
	a, _ := newTestAllocator(t)
	const threadA ThreadID = 1
	const threadB ThreadID = 2

	for i := 0; i < 20; i++ {
		_, err := a.Create(threadA, Value(i<<1))
		require.NoError(t, err)
	}

	a.releaseThread(threadA)

	a.threads.mu.Lock()
	_, stillPresent := a.threads.table[threadA]
	a.threads.mu.Unlock()
	require.False(t, stillPresent, "released thread's entry should be reset")

	a.Scan(threadB, func(host Host, v Value) Value { return v }, false)

	tsB := a.threads.get(threadB)
	tsB.mu.Lock()
	defer tsB.mu.Unlock()
	require.False(t, ringIsEmpty(tsB.old) && ringIsEmpty(tsB.young),
		"thread B should have adopted A's orphaned pools")
	ringEach(tsB.young, func(p *pool) bool {
		require.Equal(t, classYoung, p.class, "an adopted former-current pool must carry a young class")
		require.Equal(t, threadB, p.ownerID(), "adopted pools must be reowned to the adopting thread")
		return true
	})
}

// TestTeardownReleasesEverything is scenario S6: teardown after creates
// with no deletes must release every pool back to the platform without
// panicking validation.
func TestTeardownReleasesEverything(t *testing.T) {
	h := newFakeHost()
	a, err := NewAllocator(h, testConfig())
	require.NoError(t, err)

	const tid ThreadID = 1
	cap := int(capacityFor(a.poolSize))
	for i := 0; i <= cap; i++ {
		_, err := a.Create(tid, Value(i<<1))
		require.NoError(t, err)
	}

	a.teardown()

	ts := a.threads.get(tid)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.Nil(t, ts.current)
	require.Nil(t, ts.young)
	require.Nil(t, ts.old)
	require.Nil(t, ts.free)
}

func TestDeleteCrossesThresholdAndDemotes(t *testing.T) {
	a, _ := newTestAllocator(t)
	const tid ThreadID = 1

	cap := int(capacityFor(a.poolSize))
	handles := make([]Boxroot, cap+1)
	for i := 0; i <= cap; i++ {
		h, err := a.Create(tid, Value(i<<1))
		require.NoError(t, err)
		handles[i] = h
	}

	ts := a.threads.get(tid)
	ts.mu.Lock()
	young := ts.young
	ts.mu.Unlock()
	require.NotNil(t, young, "overflowing the current pool should push it to the young ring")

	// Delete enough handles from the filled (now young) pool to cross
	// below the dealloc threshold and trigger try_demote_pool.
	for i := 0; i < cap-1; i++ {
		a.Delete(tid, handles[i])
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	found := false
	ringEach(ts.free, func(p *pool) bool {
		if p == young {
			found = true
		}
		return true
	})
	ringEach(ts.young, func(p *pool) bool {
		if p == young {
			found = true
		}
		return true
	})
	require.True(t, found, "demoted pool must still be tracked by one of the thread's rings")
}
