package metrics

import (
	"sync"
)

// Manager provides a single access point to the pipeline's Prometheus metrics.
type Manager struct {
	Metrics *Metrics
	mu      sync.RWMutex
}

var globalManager *Manager
var managerOnce sync.Once

// GetManager returns the global metrics manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			Metrics: Initialize(),
		}
	})
	return globalManager
}

// RecordItemSubmitted increments the submitted-items counter.
func (m *Manager) RecordItemSubmitted() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.Metrics.ItemsSubmittedTotal.WithLabelValues().Inc()
}

// RecordItemCompleted increments the completed-items counter.
func (m *Manager) RecordItemCompleted() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.Metrics.ItemsCompletedTotal.WithLabelValues().Inc()
}

// RecordItemFailed increments the failed-items counter for the given stage.
func (m *Manager) RecordItemFailed(stage string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.Metrics.ItemsFailedTotal.WithLabelValues(stage).Inc()
}

// RecordItemCancelled increments the cancelled-items counter.
func (m *Manager) RecordItemCancelled() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.Metrics.ItemsCancelledTotal.WithLabelValues().Inc()
}

// SetInFlight sets the current in-flight item gauge.
func (m *Manager) SetInFlight(n int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.Metrics.ItemsInFlight.Set(float64(n))
}

// SetQueueDepth sets the current admission queue depth gauge.
func (m *Manager) SetQueueDepth(n int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.Metrics.QueueDepth.Set(float64(n))
}
