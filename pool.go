// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Fixed-size slot pool allocator.
//
// See allocator.go for the overview of how pools, rings, and the
// per-thread state fit together. This file implements the
// pool-internal primitives: a free list over a fixed-size slot array,
// generalizing runtime/mfixalloc.go's single free list (fixed-size
// objects over a persistentalloc'd chunk) to a pool with an intrusive
// ring header and per-slot free-list links, the way runtime/mheap.go's
// mspan carries both ring pointers (mSpanList) and its own
// free-object bitmap.
package boxroot

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/kelmar-systems/boxroot/internal/sysalloc"
)

// Class is the pool classification state machine.
type Class uint8

const (
	// classFree pools are empty and unscanned, retained for reuse.
	classFree Class = iota
	// classCurrent is the pool a thread allocates from by default. At
	// most one pool per thread is classCurrent at any time.
	classCurrent
	// classYoung pools may hold references into the host's young
	// generation and are scanned on every minor collection.
	classYoung
	// classOld pools hold only references into the host's old
	// generation and are scanned only on major collections.
	classOld
)

func (c Class) String() string {
	switch c {
	case classFree:
		return "free"
	case classCurrent:
		return "current"
	case classYoung:
		return "young"
	case classOld:
		return "old"
	default:
		return "unknown"
	}
}

// pool is the header at the start of every pool block. The slot array
// immediately follows it in the same mmap'd block; pool never holds a
// Go-managed pointer to that array; every slot is addressed by raw
// uintptr arithmetic off base, exactly as mfixalloc's "use uintptr
// instead of unsafe.Pointer to avoid write barriers" comment explains:
// the slots may contain pointers into the *host's* heap, which the Go
// garbage collector must never scan or move.
type pool struct {
	prev, next *pool // ring links; see ring.go

	freeListHead uintptr // &pool itself (sentinel) or address of a free slot
	allocCount   int32
	class        Class

	// owner holds the ThreadID whose rings currently contain this pool.
	// It changes when pools are orphaned and adopted, so threads that
	// are not the owner read it via ownerID, re-checking after they take
	// the candidate owner's lock (allocator.go's Delete and Modify).
	owner uint64

	// delayedMu and delayedHead implement the remote-free path: a
	// thread other than the owner pushes onto delayedHead under
	// delayedMu instead of touching freeListHead, which only the
	// owning thread ever writes without a lock.
	delayedMu   sync.Mutex
	delayedHead uintptr

	base uintptr // address of this header == address of the pool block
	size uintptr // configured pool size in bytes, power of two
}

const poolHeaderSize = unsafe.Sizeof(pool{})
const wordSize = unsafe.Sizeof(uintptr(0))

// capacityFor returns the number of slots a pool of the given size holds.
func capacityFor(size uintptr) uintptr {
	return (size - poolHeaderSize) / wordSize
}

// newPool allocates and initializes a fresh pool of the given size,
// with every slot threaded onto the free list in forward address
// order, so that the first Capacity allocations out of a fresh pool
// hit consecutive addresses rather than bouncing around the slot
// array.
func newPool(size uintptr) (*pool, error) {
	addr, err := sysalloc.AllocAlignedPool(size)
	if err != nil {
		return nil, err
	}
	// The block arrives zeroed from the platform, so only the non-zero
	// header fields need storing. Assigning a whole pool{} literal here
	// would copy delayedMu by value.
	p := (*pool)(unsafe.Pointer(addr))
	p.base = addr
	p.size = size
	p.class = classFree
	p.prev, p.next = p, p

	cap := capacityFor(size)
	// terminator: slots[cap-1] points at the header itself.
	p.setSlot(cap-1, addr)
	for i := cap - 1; i > 0; i-- {
		p.setSlot(i-1, p.slotAddr(i))
	}
	p.freeListHead = p.slotAddr(0)
	return p, nil
}

func (p *pool) release() {
	sysalloc.FreePool(p.base, p.size)
}

// ownerID reads the pool's owning thread. Loads are atomic because the
// owner changes during orphaning and adoption while non-owning threads
// may be classifying a Delete as local or remote.
func (p *pool) ownerID() ThreadID {
	return ThreadID(atomic.LoadUint64(&p.owner))
}

func (p *pool) setOwner(id ThreadID) {
	atomic.StoreUint64(&p.owner, uint64(id))
}

func (p *pool) capacity() uintptr {
	return capacityFor(p.size)
}

// slotAddr returns the address of slot i (0 <= i < capacity).
func (p *pool) slotAddr(i uintptr) uintptr {
	return p.base + poolHeaderSize + i*wordSize
}

func (p *pool) getSlot(i uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(p.slotAddr(i)))
}

func (p *pool) setSlot(i uintptr, v uintptr) {
	*(*uintptr)(unsafe.Pointer(p.slotAddr(i))) = v
}

func readSlot(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr))
}

func writeSlot(addr uintptr, v uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = v
}

// poolOf recovers the pool header owning a slot address in O(1) by
// masking: pools are allocated aligned to their own size, so an
// address shares the pool header's high bits with every slot inside
// it.
func poolOf(slotAddr uintptr, poolSize uintptr) *pool {
	return (*pool)(unsafe.Pointer(slotAddr &^ (poolSize - 1)))
}

// isPoolMember reports whether v currently holds a free-list link or
// the free-list terminator for pool p, rather than a live value. The
// terminator (the pool header's own address) and every in-pool slot
// address mask down to p.base. The mask subtracts 2 rather than 1 so
// that bit 0 survives it: an odd word never compares equal.
func isPoolMember(v uintptr, p *pool) bool {
	return v&^(p.size-2) == p.base
}

// popFreelist removes and returns the head of the pool's free list, or
// ok=false if the pool is exhausted (freeListHead points at the
// sentinel, i.e. the pool header itself).
func (p *pool) popFreelist() (slot uintptr, ok bool) {
	head := p.freeListHead
	if head == p.base {
		return 0, false
	}
	p.freeListHead = readSlot(head)
	p.allocCount++
	return head, true
}

// pushFreelist returns slot to the pool's free list.
func (p *pool) pushFreelist(slot uintptr) {
	writeSlot(slot, p.freeListHead)
	p.freeListHead = slot
	p.allocCount--
}

// pushDelayed appends slot to the pool's delayed (remote) free list.
func (p *pool) pushDelayed(slot uintptr) {
	p.delayedMu.Lock()
	writeSlot(slot, p.delayedHead)
	p.delayedHead = slot
	p.delayedMu.Unlock()
}

// drainDelayed merges the delayed free list into the main free list and
// returns the number of slots merged. Called only by the owning thread,
// at the start of a scan.
func (p *pool) drainDelayed() int {
	p.delayedMu.Lock()
	head := p.delayedHead
	p.delayedHead = 0
	p.delayedMu.Unlock()

	n := 0
	for head != 0 {
		next := readSlot(head)
		p.pushFreelist(head)
		head = next
		n++
	}
	return n
}
