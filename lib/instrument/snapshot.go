// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package instrument

import (
	"runtime"
	"runtime/metrics"
	"time"
)

// Snapshot is a point-in-time sample of runtime counters. It is
// CBOR-serializable so that strategies can send it over a callback.
type Snapshot struct {
	Taken      time.Time `cbor:"taken"`
	GoVersion  string    `cbor:"go_version"`
	Goroutines uint64    `cbor:"goroutines"`
	HeapBytes  uint64    `cbor:"heap_bytes"`
	TotalBytes uint64    `cbor:"total_bytes"`
	GCCycles   uint64    `cbor:"gc_cycles"`
	GOMAXPROCS int       `cbor:"gomaxprocs"`
}

const (
	metricGoroutines = "/sched/goroutines:goroutines"
	metricHeapBytes  = "/memory/classes/heap/objects:bytes"
	metricTotalBytes = "/memory/classes/total:bytes"
	metricGCCycles   = "/gc/cycles/total:gc-cycles"
)

func takeSnapshot() Snapshot {
	samples := []metrics.Sample{
		{Name: metricGoroutines},
		{Name: metricHeapBytes},
		{Name: metricTotalBytes},
		{Name: metricGCCycles},
	}
	metrics.Read(samples)

	snapshot := Snapshot{
		Taken:      time.Now().UTC(),
		GoVersion:  runtime.Version(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
	}
	for _, sample := range samples {
		if sample.Value.Kind() != metrics.KindUint64 {
			continue
		}
		value := sample.Value.Uint64()
		switch sample.Name {
		case metricGoroutines:
			snapshot.Goroutines = value
		case metricHeapBytes:
			snapshot.HeapBytes = value
		case metricTotalBytes:
			snapshot.TotalBytes = value
		case metricGCCycles:
			snapshot.GCCycles = value
		}
	}
	return snapshot
}
