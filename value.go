// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boxroot

// Value is an opaque word the host GC understands: a tagged pointer or
// an immediate. boxroot never interprets the bits of a Value itself
// beyond what Host.IsBlock and Host.YoungRange report; the tagging
// convention (which bit means "immediate", how a young address range is
// delimited) belongs entirely to the host.
type Value uintptr

// Host is the small set of hooks boxroot needs from the embedding
// garbage collector: the handful of queries an OCaml-style runtime
// exposes through its Is_block/Is_young macros and minor-heap bounds,
// abstracted so any collector with a compatible value ABI can be wired
// in.
type Host interface {
	// IsBlock reports whether v is a pointer into the host heap, as
	// opposed to an immediate value that can never move and never
	// needs scanning. A slot holding a non-block value is never
	// tracked by any pool ring.
	IsBlock(v Value) bool

	// YoungRange reports the current [start, end) address range of the
	// host's young generation. It may change across collections;
	// boxroot calls it fresh each time classification is needed and
	// never caches the result across a Scan.
	YoungRange() (start, end uintptr)
}

// IsYoung reports whether v currently points within the host's young
// generation, per the Host's own address-range test. This is the single
// unsigned subtract-and-compare the minor-scan fast path relies on.
func IsYoung(host Host, v Value) bool {
	start, end := host.YoungRange()
	addr := uintptr(v)
	return addr-start < end-start
}

// Boxroot is the externally opaque, stable handle returned by Create.
// It is literally the address of a slot; the value it currently
// references is whatever that slot holds. Handles never move, even
// across host collections; only the slot's contents are rewritten by
// the visitor the host passes to Scan.
type Boxroot uintptr

// ThreadID identifies one of the embedder's GC-managed execution
// contexts (an OCaml domain, a per-worker context, ...). A C library
// would recover "the calling thread" from thread-local storage, but
// this package cannot reach into the Go scheduler's per-P or
// per-goroutine state the way sync.Pool pins a P via runtime_procPin,
// so callers pass their own ThreadID
// explicitly. It is the caller's responsibility to use the same
// ThreadID consistently for a given execution context, and to hold
// whatever lock the host requires for that context around every call.
type ThreadID uint64

// orphanedThreadID is the reserved pseudo-thread that adopts pools left
// behind by a ThreadID that called ReleaseThread before deleting all of
// its handles.
const orphanedThreadID ThreadID = ^ThreadID(0)
