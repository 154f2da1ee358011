// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boxroot

import "testing"

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"too small pool", Config{PoolLogSize: 3, DeallocThresholdLog: 2}, true},
		{"threshold not smaller than pool", Config{PoolLogSize: 10, DeallocThresholdLog: 10}, true},
		{"threshold larger than pool", Config{PoolLogSize: 10, DeallocThresholdLog: 11}, true},
		{"minimal valid", Config{PoolLogSize: 7, DeallocThresholdLog: 6}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.PoolLogSize != 14 {
		t.Fatalf("PoolLogSize = %d, want 14", cfg.PoolLogSize)
	}
	if cfg.DeallocThresholdLog != cfg.PoolLogSize-1 {
		t.Fatalf("DeallocThresholdLog = %d, want %d", cfg.DeallocThresholdLog, cfg.PoolLogSize-1)
	}
	if cfg.Debug {
		t.Fatal("Debug should default to false")
	}
}
