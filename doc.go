// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package boxroot implements a rooted-handle allocator for native code
// that holds long-lived references into a moving, generational, tracing
// garbage collector ("the host") without paying the cost of the host's
// generic per-frame root registration API.
//
// Each Boxroot owns one cell the host GC treats as a root: as long as
// the handle is alive, the value it holds will not be collected, and
// the cell is updated in place whenever the host moves the referenced
// object. Allocating and freeing boxroots is designed to be cheap
// enough to use at the rate of ordinary allocation, and scanning the
// live population at GC time is proportional to the live set, not the
// allocated capacity.
//
// The package does not implement a garbage collector itself; it is
// wired to one through the Host interface and the callback the embedder
// invokes from Scan. Its pool, ring, and delayed-free designs generalize
// familiar Go runtime allocator shapes: fixed-size free lists, intrusive
// span rings, and producer/consumer work buffers.
package boxroot
