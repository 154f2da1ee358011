// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sysalloc

import "unsafe"

// unsafePointerOf returns the address of the first byte of b.
func unsafePointerOf(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

// sliceAt reinterprets the size bytes starting at addr as a byte slice,
// without copying. Used only to hand raw mmap'd regions back to
// unix.Munmap/unix.Madvise, which want a []byte.
func sliceAt(addr, size uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))
}
