package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// JobMetrics summarizes one completed job tick.
type JobMetrics struct {
	Job        string    `json:"job"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Duration   string    `json:"duration"`
	Items      int64     `json:"items"`
	Matches    int64     `json:"matches"`
	Sent       int64     `json:"sent"`
	Deferred   int64     `json:"deferred"`
	Dropped    int64     `json:"dropped"`
	Errors     int64     `json:"errors"`
	Skipped    bool      `json:"skipped"` // another instance held the lock
}

// MetricsCollector keeps the last completed run per job for the health
// endpoint.
type MetricsCollector struct {
	mu      sync.RWMutex
	lastRun map[string]JobMetrics
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{lastRun: make(map[string]JobMetrics)}
}

func (mc *MetricsCollector) Record(m JobMetrics) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.lastRun[m.Job] = m
}

// LastRun returns the most recent metrics for a job.
func (mc *MetricsCollector) LastRun(job string) (JobMetrics, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	m, ok := mc.lastRun[job]
	return m, ok
}

// Snapshot returns a copy of every job's last run.
func (mc *MetricsCollector) Snapshot() map[string]JobMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	out := make(map[string]JobMetrics, len(mc.lastRun))
	for k, v := range mc.lastRun {
		out[k] = v
	}
	return out
}

// counters accumulates per-tick totals across workers.
type counters struct {
	items    atomic.Int64
	matches  atomic.Int64
	sent     atomic.Int64
	deferred atomic.Int64
	dropped  atomic.Int64
	errors   atomic.Int64
}

func (c *counters) metrics(job string, started time.Time) JobMetrics {
	finished := time.Now()
	return JobMetrics{
		Job:        job,
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started).String(),
		Items:      c.items.Load(),
		Matches:    c.matches.Load(),
		Sent:       c.sent.Load(),
		Deferred:   c.deferred.Load(),
		Dropped:    c.dropped.Load(),
		Errors:     c.errors.Load(),
	}
}
