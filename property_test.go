// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boxroot

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRandomizedOperationsMatchModel drives a random sequence of
// create/get/delete/modify interleaved with simulated minor and major
// scans against a plain map model, checking that every live handle
// always returns the last value written (possibly rewritten by the
// simulated GC visitor) and that ring validation (Debug is on in
// testConfig) passes after every scan.
func TestRandomizedOperationsMatchModel(t *testing.T) {
	a, h := newTestAllocator(t)
	const tid ThreadID = 7
	const oldBase = uintptr(0x100000)
	rng := rand.New(rand.NewSource(1))

	model := map[Boxroot]Value{}
	var handles []Boxroot

	randomValue := func() Value {
		switch rng.Intn(3) {
		case 0: // immediate: odd under fakeHost
			return Value(rng.Intn(1<<12)*2 + 1)
		case 1: // young pointer
			span := int(h.youngEnd-h.youngStart) / 2
			return Value(h.youngStart + uintptr(rng.Intn(span)*2))
		default: // old pointer
			return Value(oldBase + uintptr(rng.Intn(1<<12)*2))
		}
	}

	// The simulated collector relocates every young block to a fixed
	// offset in old space, the way a copying minor collection would.
	visitor := func(host Host, v Value) Value {
		if IsYoung(host, v) {
			return Value(uintptr(v) - h.youngStart + oldBase)
		}
		return v
	}
	rewriteModel := func() {
		for hnd, v := range model {
			if IsYoung(h, v) {
				model[hnd] = Value(uintptr(v) - h.youngStart + oldBase)
			}
		}
	}

	for i := 0; i < 5000; i++ {
		switch op := rng.Intn(100); {
		case op < 40:
			v := randomValue()
			hnd, err := a.Create(tid, v)
			require.NoError(t, err)
			handles = append(handles, hnd)
			model[hnd] = v
		case op < 60 && len(handles) > 0:
			idx := rng.Intn(len(handles))
			hnd := handles[idx]
			handles[idx] = handles[len(handles)-1]
			handles = handles[:len(handles)-1]
			a.Delete(tid, hnd)
			delete(model, hnd)
		case op < 80 && len(handles) > 0:
			hnd := handles[rng.Intn(len(handles))]
			v := randomValue()
			a.Modify(tid, &hnd, v)
			model[hnd] = v
		case op < 95 && len(handles) > 0:
			hnd := handles[rng.Intn(len(handles))]
			require.Equal(t, model[hnd], a.Get(hnd), "step %d", i)
		default:
			minor := rng.Intn(4) != 0
			a.Scan(tid, visitor, minor)
			rewriteModel()
		}
	}

	for hnd, want := range model {
		require.Equal(t, want, a.Get(hnd), "handle addresses are stable across scans")
	}

	for _, hnd := range handles {
		a.Delete(tid, hnd)
	}
	a.Scan(tid, visitor, false)

	ts := a.threads.get(tid)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.Nil(t, ts.young, "all emptied pools must have left the young ring")
	require.Nil(t, ts.old, "all emptied pools must have left the old ring")
	require.Nil(t, ts.free, "the major scan must have released every free pool")
}

// TestConcurrentMutatorsWithScans runs several threads mutating their
// own handles (with periodic scans of their own rings) alongside a
// producer whose handles are deleted remotely by another thread. Meant
// to run under the race detector; validation after each scan checks
// that no schedule tears a free list.
func TestConcurrentMutatorsWithScans(t *testing.T) {
	a, h := newTestAllocator(t)

	var wg sync.WaitGroup
	remote := make(chan Boxroot, 256)

	for w := 1; w <= 3; w++ {
		wg.Add(1)
		go func(tid ThreadID) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(tid)))
			var handles []Boxroot
			for i := 0; i < 2000; i++ {
				switch {
				case len(handles) == 0 || rng.Intn(3) == 0:
					hnd, err := a.Create(tid, Value(h.youngStart+2))
					if err != nil {
						t.Error(err)
						return
					}
					handles = append(handles, hnd)
				case rng.Intn(2) == 0:
					idx := rng.Intn(len(handles))
					a.Delete(tid, handles[idx])
					handles[idx] = handles[len(handles)-1]
					handles = handles[:len(handles)-1]
				default:
					a.Modify(tid, &handles[rng.Intn(len(handles))], Value(0x9000))
				}
				if i%500 == 0 {
					a.Scan(tid, func(_ Host, v Value) Value { return v }, i%1000 == 0)
				}
			}
			for _, hnd := range handles {
				a.Delete(tid, hnd)
			}
		}(ThreadID(w))
	}

	const producer ThreadID = 4
	const deleter ThreadID = 5
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(remote)
		for i := 0; i < 2000; i++ {
			hnd, err := a.Create(producer, Value(i<<1))
			if err != nil {
				t.Error(err)
				return
			}
			remote <- hnd
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for hnd := range remote {
			a.Delete(deleter, hnd)
		}
	}()

	wg.Wait()

	// The producer's next major scan merges every delayed free, empties
	// its pools, and releases them.
	a.Scan(producer, func(_ Host, v Value) Value { return v }, false)

	ts := a.threads.get(producer)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.Nil(t, ts.young)
	require.Nil(t, ts.old)
	require.Nil(t, ts.free)
}
