// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Counters and stats export: a plain text dump for quick inspection,
// plus an optional prometheus collector for embedders that already run
// a registry. Counters are eventually consistent and advisory only;
// nothing in the allocator makes a correctness decision from them.
package boxroot

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kelmar-systems/boxroot/internal/metrics"
	"github.com/kelmar-systems/boxroot/internal/sysalloc"
)

// allocatorStats is the set of counters an Allocator maintains across
// its lifetime. Every field is a sysalloc.Counter so increments never
// need the allocator's own locks.
type allocatorStats struct {
	allocatedPools sysalloc.Counter
	liveFreePools  sysalloc.Counter
	totalCreate    sysalloc.Counter
	totalDelete    sysalloc.Counter
	totalModify    sysalloc.Counter
	remoteDeletes  sysalloc.Counter
	minorScans     sysalloc.Counter
	majorScans     sysalloc.Counter
	scannedSlots   sysalloc.Counter
	scanNanos      sysalloc.Counter
	promotedPools  sysalloc.Counter
	reclaimedPools sysalloc.Counter
}

// Snapshot implements metrics.Source.
func (a *Allocator) Snapshot() metrics.Snapshot {
	s := &a.stats
	return metrics.Snapshot{
		AllocatedPools: s.allocatedPools.Load(),
		LiveFreePools:  s.liveFreePools.Load(),
		TotalCreate:    s.totalCreate.Load(),
		TotalDelete:    s.totalDelete.Load(),
		TotalModify:    s.totalModify.Load(),
		RemoteDeletes:  s.remoteDeletes.Load(),
		MinorScans:     s.minorScans.Load(),
		MajorScans:     s.majorScans.Load(),
		ScannedSlots:   s.scannedSlots.Load(),
		ScanNanos:      s.scanNanos.Load(),
		PromotedPools:  s.promotedPools.Load(),
		ReclaimedPools: s.reclaimedPools.Load(),
	}
}

// PrintStats writes a human-readable summary of the allocator's
// counters to w.
func (a *Allocator) PrintStats(w io.Writer) {
	s := a.Snapshot()
	fmt.Fprintf(w, "boxroot stats:\n")
	fmt.Fprintf(w, "  pools allocated      %d\n", s.AllocatedPools)
	fmt.Fprintf(w, "  pools free (live)    %d\n", s.LiveFreePools)
	fmt.Fprintf(w, "  pools promoted       %d\n", s.PromotedPools)
	fmt.Fprintf(w, "  pools reclaimed      %d\n", s.ReclaimedPools)
	fmt.Fprintf(w, "  create               %d\n", s.TotalCreate)
	fmt.Fprintf(w, "  delete               %d (remote %d)\n", s.TotalDelete, s.RemoteDeletes)
	fmt.Fprintf(w, "  modify               %d\n", s.TotalModify)
	fmt.Fprintf(w, "  minor scans          %d\n", s.MinorScans)
	fmt.Fprintf(w, "  major scans          %d\n", s.MajorScans)
	fmt.Fprintf(w, "  slots scanned        %d\n", s.ScannedSlots)
	fmt.Fprintf(w, "  scan time            %v\n", time.Duration(s.ScanNanos))
}

// RegisterCollector registers a, as a prometheus.Collector, against
// reg. Callers that already run a prometheus.Registry wire the
// allocator into it; embedders with no Prometheus dependency simply
// never call this.
func (a *Allocator) RegisterCollector(reg *prometheus.Registry) error {
	return reg.Register(metrics.NewCollector(a))
}
