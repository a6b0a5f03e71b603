package metrics

import (
	"sync"
)

// Metrics tracks queue lifecycle counters for the current process.
type Metrics struct {
	mu sync.RWMutex

	enqueuedJobs  int64
	completedJobs int64
	failedJobs    int64
	retriedJobs   int64
	reclaimedJobs int64
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncrementEnqueuedJobs increments the enqueued jobs counter.
func (m *Metrics) IncrementEnqueuedJobs() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueuedJobs++
}

// IncrementCompletedJobs increments the completed jobs counter.
func (m *Metrics) IncrementCompletedJobs() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completedJobs++
}

// IncrementFailedJobs increments the failed jobs counter.
func (m *Metrics) IncrementFailedJobs() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failedJobs++
}

// IncrementRetriedJobs increments the retried jobs counter.
func (m *Metrics) IncrementRetriedJobs() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retriedJobs++
}

// IncrementReclaimedJobs increments the reclaimed jobs counter.
func (m *Metrics) IncrementReclaimedJobs() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reclaimedJobs++
}

// GetSnapshot returns a snapshot of all counters.
func (m *Metrics) GetSnapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]int64{
		"enqueued_jobs":  m.enqueuedJobs,
		"completed_jobs": m.completedJobs,
		"failed_jobs":    m.failedJobs,
		"retried_jobs":   m.retriedJobs,
		"reclaimed_jobs": m.reclaimedJobs,
	}
}
