// store.go implements thread-safe aggregation of generation statistics.
package metrics

import (
	"sync"
	"time"
)

// Store accumulates generation statistics over the life of the process.
// All methods are safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	totalRequests int64
	totalSuccess  int64
	totalErrors   int64

	// totalDuration accumulates successful generation time for the average
	totalDuration time.Duration
	lastGen       time.Time
}

// NewStore creates an empty statistics store.
func NewStore() *Store {
	return &Store{}
}

// RecordGeneration records the outcome of a single generation request.
// Duration contributes to the average only for successful requests.
func (s *Store) RecordGeneration(duration time.Duration, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalRequests++
	s.lastGen = time.Now()

	if success {
		s.totalSuccess++
		s.totalDuration += duration
	} else {
		s.totalErrors++
	}
}

// Snapshot returns a copy of the current statistics.
func (s *Store) Snapshot() GenerationStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := GenerationStats{
		TotalRequests:  s.totalRequests,
		TotalSuccess:   s.totalSuccess,
		TotalErrors:    s.totalErrors,
		LastGeneration: s.lastGen,
	}
	if s.totalSuccess > 0 {
		stats.AvgDuration = s.totalDuration / time.Duration(s.totalSuccess)
	}
	return stats
}

// Reset clears all accumulated statistics.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalRequests = 0
	s.totalSuccess = 0
	s.totalErrors = 0
	s.totalDuration = 0
	s.lastGen = time.Time{}
}
