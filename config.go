// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boxroot

import (
	"errors"
	"fmt"
)

// ErrOutOfMemory is returned (wrapping the platform error) by Create
// when the platform allocator cannot produce another pool. It is the Go-idiomatic stand-in
// for a C ABI's null return.
var ErrOutOfMemory = errors.New("boxroot: out of memory")

// ErrNotSetup is returned by operations performed before Setup succeeds.
var ErrNotSetup = errors.New("boxroot: not set up")

// ErrAlreadySetup is returned by a second call to Setup without an
// intervening Teardown.
var ErrAlreadySetup = errors.New("boxroot: already set up")

// Config carries the compile-time tunables as struct
// fields, since Go has no macro layer to enumerate them as constants
// the way the C implementation does.
type Config struct {
	// PoolLogSize is log2 of the pool size in bytes. Recommended 14
	// (16 KiB).
	PoolLogSize uint

	// DeallocThresholdLog is log2 of the fullness step, relative to
	// pool size, at which try_demote_pool reconsiders a pool's
	// placement in its ring. A value of PoolLogSize-1 (half the pool)
	// is the recommended default.
	DeallocThresholdLog uint

	// Debug enables ring-validation assertions, for catching usage
	// errors that a release build only detects, if at all, as memory
	// corruption. It does not change which counters are kept.
	Debug bool

	// Logger receives structured events (setup/teardown, orphan
	// adoption, scan summaries). A nil Logger installs zap's no-op
	// logger.
	Logger Logger
}

// DefaultConfig holds the recommended tunables for typical workloads.
func DefaultConfig() Config {
	return Config{
		PoolLogSize:         14,
		DeallocThresholdLog: 13,
		Debug:               false,
	}
}

func (c Config) validate() error {
	if c.PoolLogSize < 6 {
		return fmt.Errorf("boxroot: PoolLogSize %d too small to hold a header and one slot", c.PoolLogSize)
	}
	if c.DeallocThresholdLog >= c.PoolLogSize {
		return fmt.Errorf("boxroot: DeallocThresholdLog %d must be smaller than PoolLogSize %d", c.DeallocThresholdLog, c.PoolLogSize)
	}
	poolSize := uintptr(1) << c.PoolLogSize
	if poolSize <= poolHeaderSize {
		return fmt.Errorf("boxroot: pool size %d too small for header size %d", poolSize, poolHeaderSize)
	}
	return nil
}
