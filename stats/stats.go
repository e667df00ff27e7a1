// Package stats is a process-wide observability registry: a set of
// counters the array/query packages bump as they run, dumped on demand as
// a JSON object. Global() returns a value whose lifetime is strictly the
// process and whose counters are plain atomics, so there is no locking and
// no ownership to manage.
package stats

import (
	"encoding/json"
	"sync/atomic"
)

// Collector holds a related group of counters: one per MergeIterator (or
// per query operator invocation) when callers want scoped numbers, or the
// process-wide Global() registry for an ambient total. Threading a
// *Collector through an iterator constructor is how scoped collection is
// achieved; nothing here is implicitly global except the package-level
// singleton itself.
type Collector struct {
	CellsEmitted      atomic.Int64
	DeletionsSkipped  atomic.Int64
	TilesMaterialized atomic.Int64
	BytesBuffered     atomic.Int64
}

// Snapshot is a point-in-time, JSON-friendly copy of a Collector's counters.
type Snapshot struct {
	CellsEmitted      int64 `json:"cells_emitted"`
	DeletionsSkipped  int64 `json:"deletions_skipped"`
	TilesMaterialized int64 `json:"tiles_materialized"`
	BytesBuffered     int64 `json:"bytes_buffered"`
}

// Snapshot reads every counter into a plain struct, suitable for json.Marshal.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	return Snapshot{
		CellsEmitted:      c.CellsEmitted.Load(),
		DeletionsSkipped:  c.DeletionsSkipped.Load(),
		TilesMaterialized: c.TilesMaterialized.Load(),
		BytesBuffered:     c.BytesBuffered.Load(),
	}
}

// Dump renders the collector as a JSON object.
func (c *Collector) Dump() (string, error) {
	b, err := json.Marshal(c.Snapshot())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var global Collector

// Global returns the process-wide Collector. Its lifetime is the process;
// it is safe for concurrent use from any number of iterators.
func Global() *Collector { return &global }
