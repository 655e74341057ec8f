package observability

import "sync"

// Metrics provides basic in-memory counters for container operations.
type Metrics struct {
	mu         sync.Mutex
	opCount    map[string]int64
	errorCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		opCount:    make(map[string]int64),
		errorCount: make(map[string]int64),
	}
}

// RecordOperation increments the counter for a container operation.
func (m *Metrics) RecordOperation(container, op string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opCount[container+"|"+op]++
}

// RecordError increments the error counter for a container operation.
func (m *Metrics) RecordError(container, op, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[container+"|"+op+"|"+code]++
}

// OperationCount returns the recorded count for an operation.
func (m *Metrics) OperationCount(container, op string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opCount[container+"|"+op]
}

// ErrorCount returns the recorded error count for an operation and code.
func (m *Metrics) ErrorCount(container, op, code string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorCount[container+"|"+op+"|"+code]
}
