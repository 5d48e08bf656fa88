// Package metrics provides in-memory invocation statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// Operation names for the collector.
const (
	OpIngest    = "ingest"
	OpReconcile = "reconcile"
)

// OperationMetrics holds aggregated metrics for a single handler.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Invocation count per outcome tag (success, ignored, drop, retry).
	Outcomes map[string]int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64
	Outcomes    map[string]int64
}

// Snapshot represents full process statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	Ingest        *OperationSnapshot
	Reconcile     *OperationSnapshot
}

// Collector aggregates in-memory invocation statistics for the lifetime
// of one warm process. All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an
// operation. Caller must hold the write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime:  time.Duration(math.MaxInt64),
			Outcomes: make(map[string]int64),
		}
		c.ops[op] = m
	}
	return m
}

// Record records one invocation of op with its outcome tag and duration.
func (c *Collector) Record(op, outcome string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration
	m.Outcomes[outcome]++

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// snapshotOp creates a snapshot for an operation, returning nil if no
// data was recorded.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	outcomes := make(map[string]int64, len(m.Outcomes))
	for k, v := range m.Outcomes {
		outcomes[k] = v
	}

	return &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
		Outcomes:    outcomes,
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Ingest:        snapshotOp(c.ops[OpIngest]),
		Reconcile:     snapshotOp(c.ops[OpReconcile]),
	}
}
