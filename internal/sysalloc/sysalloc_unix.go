// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package sysalloc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// allocAlignedPool allocates 2*size bytes with mmap and trims the
// unaligned head and tail, the cgo-free equivalent of posix_memalign:
// mmap's own alignment guarantee is only the page size, not an
// arbitrary power of two, so the slack must be unmapped explicitly via
// unix.Mmap/unix.Munmap from golang.org/x/sys.
func allocAlignedPool(size uintptr) (uintptr, error) {
	raw, err := unix.Mmap(-1, 0, int(2*size), unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, fmt.Errorf("sysalloc: mmap: %w", err)
	}
	base := uintptr(unsafePointerOf(raw))
	aligned := (base + size - 1) &^ (size - 1)

	if head := aligned - base; head > 0 {
		unix.Munmap(raw[:head])
	}
	tailOff := (aligned - base) + size
	if tail := uintptr(len(raw)) - tailOff; tail > 0 {
		unix.Munmap(raw[tailOff:])
	}

	_ = unix.Madvise(sliceAt(aligned, size), unix.MADV_WILLNEED)
	return aligned, nil
}

func freePool(addr, size uintptr) {
	unix.Munmap(sliceAt(addr, size))
}
