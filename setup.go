// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Process-wide setup/teardown and the package-level convenience API
// wrapping a default Allocator: an explicit, lockable default instance
// rather than a bare global, for embedders that want the simple
// top-level function surface instead of threading an *Allocator
// through.
package boxroot

import (
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type setupStatus uint8

const (
	statusNotSetup setupStatus = iota
	statusRunning
	statusError
)

var (
	defaultMu     sync.Mutex
	defaultStatus setupStatus
	defaultAlloc  *Allocator
)

// Setup installs host and cfg as the package-level default Allocator,
// used by the top-level Create/Get/Delete/Modify/Scan/PrintStats
// functions. It returns ErrAlreadySetup if called twice without an
// intervening Teardown.
func Setup(host Host, cfg Config) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultStatus == statusRunning {
		return ErrAlreadySetup
	}
	a, err := NewAllocator(host, cfg)
	if err != nil {
		defaultStatus = statusError
		return err
	}
	defaultAlloc = a
	defaultStatus = statusRunning
	return nil
}

// Teardown releases every pool still held by the default Allocator back
// to the platform and resets package state so a later Setup call starts
// clean. Safe to call when no Setup is in effect.
func Teardown() {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultAlloc != nil {
		defaultAlloc.teardown()
	}
	defaultAlloc = nil
	defaultStatus = statusNotSetup
}

// teardown frees every pool owned by every known thread, including the
// orphan pseudo-thread.
func (a *Allocator) teardown() {
	a.threads.mu.Lock()
	states := make([]*threadState, 0, len(a.threads.table))
	for _, ts := range a.threads.table {
		states = append(states, ts)
	}
	a.threads.mu.Unlock()

	for _, ts := range states {
		ts.mu.Lock()
		for _, head := range []**pool{&ts.current, &ts.young, &ts.old, &ts.free} {
			// Pop before releasing: release unmaps the block the ring
			// links live in.
			for *head != nil {
				p := ringPop(head)
				if p.class == classFree {
					a.stats.liveFreePools.Sub(1)
				}
				p.release()
			}
		}
		ts.mu.Unlock()
	}
	a.logger.Info("boxroot allocator torn down")
}

func defaultOrErr() (*Allocator, error) {
	defaultMu.Lock()
	a, status := defaultAlloc, defaultStatus
	defaultMu.Unlock()
	if status != statusRunning {
		return nil, ErrNotSetup
	}
	return a, nil
}

// Create allocates a boxroot on the package-level default Allocator.
func Create(tid ThreadID, v Value) (Boxroot, error) {
	a, err := defaultOrErr()
	if err != nil {
		return 0, err
	}
	return a.Create(tid, v)
}

// Get dereferences h on the package-level default Allocator.
func Get(h Boxroot) Value {
	return Value(readSlot(uintptr(h)))
}

// Delete deletes h on the package-level default Allocator.
func Delete(tid ThreadID, h Boxroot) error {
	a, err := defaultOrErr()
	if err != nil {
		return err
	}
	a.Delete(tid, h)
	return nil
}

// Modify overwrites *h on the package-level default Allocator.
func Modify(tid ThreadID, h *Boxroot, v Value) error {
	a, err := defaultOrErr()
	if err != nil {
		return err
	}
	a.Modify(tid, h, v)
	return nil
}

// Scan runs a scan pass on the package-level default Allocator.
func Scan(tid ThreadID, visitor VisitorFunc, minor bool) error {
	a, err := defaultOrErr()
	if err != nil {
		return err
	}
	a.Scan(tid, visitor, minor)
	return nil
}

// ReleaseThread retires tid's pools to the orphan pseudo-thread on the
// package-level default Allocator. Call when a host-side execution
// context (goroutine, worker, fiber) that owned tid is about to exit.
func ReleaseThread(tid ThreadID) error {
	a, err := defaultOrErr()
	if err != nil {
		return err
	}
	a.releaseThread(tid)
	return nil
}

// PrintStats writes the package-level default Allocator's counters.
func PrintStats(w io.Writer) error {
	a, err := defaultOrErr()
	if err != nil {
		return err
	}
	a.PrintStats(w)
	return nil
}

// RegisterCollector registers the package-level default Allocator
// against reg.
func RegisterCollector(reg *prometheus.Registry) error {
	a, err := defaultOrErr()
	if err != nil {
		return err
	}
	return a.RegisterCollector(reg)
}
