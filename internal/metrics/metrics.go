// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics adapts the allocator's counters (boxroot's stats.go)
// to a prometheus.Collector, the way the rest of the corpus exposes
// runtime-style counters: a pull-based Collect call that reads a
// snapshot rather than pushing on every increment.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Snapshot is a point-in-time copy of the allocator's counters. It is
// produced by the boxroot package (which owns the counters) and
// consumed here, keeping this package free of any dependency back on
// boxroot's types.
type Snapshot struct {
	AllocatedPools uint64
	LiveFreePools  uint64
	TotalCreate    uint64
	TotalDelete    uint64
	TotalModify    uint64
	RemoteDeletes  uint64
	MinorScans     uint64
	MajorScans     uint64
	ScannedSlots   uint64
	ScanNanos      uint64
	PromotedPools  uint64
	ReclaimedPools uint64
}

// Source is satisfied by anything that can produce a current Snapshot.
// boxroot.Allocator implements it.
type Source interface {
	Snapshot() Snapshot
}

const namespace = "boxroot"

// Collector is a prometheus.Collector over a Source, registered by
// callers of boxroot.RegisterCollector the same way the corpus's other
// examples register a custom collector rather than a fixed set of
// package-level metrics: the allocator instance, not the package, owns
// the data.
type Collector struct {
	src Source

	allocatedPools *prometheus.Desc
	liveFreePools  *prometheus.Desc
	totalCreate    *prometheus.Desc
	totalDelete    *prometheus.Desc
	totalModify    *prometheus.Desc
	remoteDeletes  *prometheus.Desc
	minorScans     *prometheus.Desc
	majorScans     *prometheus.Desc
	scannedSlots   *prometheus.Desc
	scanSeconds    *prometheus.Desc
	promotedPools  *prometheus.Desc
	reclaimedPools *prometheus.Desc
}

// NewCollector builds a Collector reading from src.
func NewCollector(src Source) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(namespace+"_"+name, help, nil, nil)
	}
	return &Collector{
		src:            src,
		allocatedPools: desc("allocated_pools_total", "Pools obtained from the platform allocator over the allocator's lifetime."),
		liveFreePools:  desc("live_free_pools", "Pools currently classified free and retained for reuse."),
		totalCreate:    desc("create_total", "Boxroot handles created."),
		totalDelete:    desc("delete_total", "Boxroot handles deleted."),
		totalModify:    desc("modify_total", "Boxroot handles modified."),
		remoteDeletes:  desc("remote_delete_total", "Deletes performed by a thread other than the handle's owner."),
		minorScans:     desc("minor_scan_total", "Minor (young-only) scans performed."),
		majorScans:     desc("major_scan_total", "Major (full) scans performed."),
		scannedSlots:   desc("scanned_slots_total", "Slots visited by the GC callback across all scans."),
		scanSeconds:    desc("scan_seconds_total", "Total wall-clock time spent inside scan passes."),
		promotedPools:  desc("promoted_pools_total", "Young pools promoted to old on minor scan completion."),
		reclaimedPools: desc("reclaimed_pools_total", "Fully-empty old pools reclaimed (freed to free class) on major scan."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.allocatedPools
	ch <- c.liveFreePools
	ch <- c.totalCreate
	ch <- c.totalDelete
	ch <- c.totalModify
	ch <- c.remoteDeletes
	ch <- c.minorScans
	ch <- c.majorScans
	ch <- c.scannedSlots
	ch <- c.scanSeconds
	ch <- c.promotedPools
	ch <- c.reclaimedPools
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.allocatedPools, prometheus.CounterValue, float64(s.AllocatedPools))
	ch <- prometheus.MustNewConstMetric(c.liveFreePools, prometheus.GaugeValue, float64(s.LiveFreePools))
	ch <- prometheus.MustNewConstMetric(c.totalCreate, prometheus.CounterValue, float64(s.TotalCreate))
	ch <- prometheus.MustNewConstMetric(c.totalDelete, prometheus.CounterValue, float64(s.TotalDelete))
	ch <- prometheus.MustNewConstMetric(c.totalModify, prometheus.CounterValue, float64(s.TotalModify))
	ch <- prometheus.MustNewConstMetric(c.remoteDeletes, prometheus.CounterValue, float64(s.RemoteDeletes))
	ch <- prometheus.MustNewConstMetric(c.minorScans, prometheus.CounterValue, float64(s.MinorScans))
	ch <- prometheus.MustNewConstMetric(c.majorScans, prometheus.CounterValue, float64(s.MajorScans))
	ch <- prometheus.MustNewConstMetric(c.scannedSlots, prometheus.CounterValue, float64(s.ScannedSlots))
	ch <- prometheus.MustNewConstMetric(c.scanSeconds, prometheus.CounterValue, float64(s.ScanNanos)/1e9)
	ch <- prometheus.MustNewConstMetric(c.promotedPools, prometheus.CounterValue, float64(s.PromotedPools))
	ch <- prometheus.MustNewConstMetric(c.reclaimedPools, prometheus.CounterValue, float64(s.ReclaimedPools))
}
