package remote

import (
	"context"
	"sync"
	"time"
)

// MockSubmitter simulates the key-submission backend with an artificial
// delay, for development and tests without network access.
type MockSubmitter struct {
	mu      sync.Mutex
	latency time.Duration
	err     error
}

// NewMockSubmitter builds a submitter that succeeds after the given
// latency.
func NewMockSubmitter(latency time.Duration) *MockSubmitter {
	return &MockSubmitter{latency: latency}
}

// Fail makes subsequent submissions return err.
func (m *MockSubmitter) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Restore clears a scripted failure.
func (m *MockSubmitter) Restore() {
	m.Fail(nil)
}

// SubmitKey waits out the simulated latency, then returns the scripted
// outcome.
func (m *MockSubmitter) SubmitKey(ctx context.Context, _ string, _ KeySubmission) error {
	if err := sleep(ctx, m.latency); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
