package announceservice

import (
	"sync"

	"github.com/Black-And-White-Club/award-rotation/app/observability"
)

// ------------------------
// Fake Metrics
// ------------------------

type FakeMetrics struct {
	observability.NoOpMetrics
	mu      sync.Mutex
	results map[string]int
}

func NewFakeMetrics() *FakeMetrics {
	return &FakeMetrics{results: map[string]int{}}
}

func (f *FakeMetrics) RecordAnnouncement(result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[result]++
}

func (f *FakeMetrics) Count(result string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[result]
}
