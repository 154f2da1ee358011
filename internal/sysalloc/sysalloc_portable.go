// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix

package sysalloc

import "sync"

// The portable fallback cannot unmap the slack around an aligned block
// the way sysalloc_unix.go can, since there is no munmap to give the
// excess back to the OS. Instead it over-allocates 2*size from the Go
// heap and retains a reference to the whole backing array for the
// lifetime of the pool, trading a 2x memory overhead per live pool for
// portability to platforms without golang.org/x/sys/unix support. This
// mirrors the "allocate more, use less" shape of
// runtime/mfixalloc.go's persistentalloc chunking, just without the
// ability to return the unused part to the platform.
var (
	retainedMu sync.Mutex
	retained   = map[uintptr][]byte{}
)

func allocAlignedPool(size uintptr) (uintptr, error) {
	buf := make([]byte, 2*size)
	base := uintptr(unsafePointerOf(buf))
	aligned := (base + size - 1) &^ (size - 1)

	retainedMu.Lock()
	retained[aligned] = buf
	retainedMu.Unlock()
	return aligned, nil
}

func freePool(addr, _ uintptr) {
	retainedMu.Lock()
	delete(retained, addr)
	retainedMu.Unlock()
}
