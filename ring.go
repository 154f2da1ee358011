// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Intrusive cyclic doubly-linked pool rings. Threaded
// through pool.prev/pool.next, the same shape as runtime/mheap.go's
// mSpanList (insert/remove/takeAll) except cyclic rather than
// null-terminated, matching container/list's circular sentinel-node
// design more closely than mSpanList's open-ended one. A ring is
// represented by a single *pool naming its head; an empty ring is nil.
package boxroot

// ringLink splices b in as a's successor.
func ringLink(a, b *pool) {
	a.next = b
	b.prev = a
}

// ringPushFront concatenates the (possibly multi-element) ring headed
// by src in front of *head, an O(1) splice regardless of either ring's
// length. This is what lets scanner.go promote an entire young ring
// into old in O(pool-count) rather than O(slot-count).
func ringPushFront(head **pool, src *pool) {
	if src == nil {
		return
	}
	if *head == nil {
		*head = src
		return
	}
	dst := *head
	dstLast := dst.prev
	srcLast := src.prev

	ringLink(dstLast, src)
	ringLink(srcLast, dst)
	*head = src
}

// ringPushBack concatenates src at the end of *head, preserving FIFO
// order among pools that have waited longest for reuse. No allocator
// path calls it: tryDemotePool and the other ring moves in this package
// all push to the front.
func ringPushBack(head **pool, src *pool) {
	if src == nil {
		return
	}
	if *head == nil {
		*head = src
		return
	}
	dst := *head
	ringPushFront(head, src)
	*head = dst
}

// ringPop removes and returns the head of *head, leaving the popped
// pool as a ring of one (its own prev/next). Sets *head to nil if the
// ring becomes empty.
func ringPop(head **pool) *pool {
	front := *head
	if front == nil {
		return nil
	}
	if front.next == front {
		*head = nil
		front.prev, front.next = front, front
		return front
	}
	front.prev.next = front.next
	front.next.prev = front.prev
	*head = front.next
	front.prev, front.next = front, front
	return front
}

// ringRemove removes p from whatever ring it is currently in, without
// needing the ring's head pointer, and reports what the new head
// should be if the caller's external head pointer was pointing at p.
// Callers that hold *head explicitly should prefer ringPop when
// removing the head, and this helper when removing an arbitrary
// element such as during try_demote_pool.
func ringRemove(p *pool) (wasSoleMember bool, newHead *pool) {
	if p.next == p {
		p.prev, p.next = p, p
		return true, nil
	}
	p.prev.next = p.next
	p.next.prev = p.prev
	newHead = p.next
	p.prev, p.next = p, p
	return false, newHead
}

// ringIsEmpty reports whether head names an empty ring.
func ringIsEmpty(head *pool) bool {
	return head == nil
}

// ringEach calls fn for every pool in the ring headed by head, stopping
// early if fn returns false. fn must not mutate the ring's linkage.
func ringEach(head *pool, fn func(p *pool) bool) {
	if head == nil {
		return
	}
	p := head
	for {
		if !fn(p) {
			return
		}
		p = p.next
		if p == head {
			return
		}
	}
}
