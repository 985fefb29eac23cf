package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestStore_RecordGeneration(t *testing.T) {
	store := NewStore()

	store.RecordGeneration(2*time.Second, true)
	store.RecordGeneration(4*time.Second, true)
	store.RecordGeneration(0, false)

	stats := store.Snapshot()

	if stats.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, want 3", stats.TotalRequests)
	}
	if stats.TotalSuccess != 2 {
		t.Errorf("TotalSuccess = %d, want 2", stats.TotalSuccess)
	}
	if stats.TotalErrors != 1 {
		t.Errorf("TotalErrors = %d, want 1", stats.TotalErrors)
	}
	if stats.AvgDuration != 3*time.Second {
		t.Errorf("AvgDuration = %v, want 3s", stats.AvgDuration)
	}
	if stats.LastGeneration.IsZero() {
		t.Error("LastGeneration should be set after recording")
	}
}

func TestStore_EmptySnapshot(t *testing.T) {
	stats := NewStore().Snapshot()

	if stats.TotalRequests != 0 || stats.AvgDuration != 0 {
		t.Errorf("empty store should have zero stats, got %+v", stats)
	}
	if stats.SuccessRate() != 0 {
		t.Errorf("SuccessRate() on empty store = %v, want 0", stats.SuccessRate())
	}
}

func TestStore_SuccessRate(t *testing.T) {
	store := NewStore()
	store.RecordGeneration(time.Second, true)
	store.RecordGeneration(time.Second, true)
	store.RecordGeneration(time.Second, true)
	store.RecordGeneration(0, false)

	if got := store.Snapshot().SuccessRate(); got != 75 {
		t.Errorf("SuccessRate() = %v, want 75", got)
	}
}

func TestStore_Reset(t *testing.T) {
	store := NewStore()
	store.RecordGeneration(time.Second, true)
	store.Reset()

	stats := store.Snapshot()
	if stats.TotalRequests != 0 || !stats.LastGeneration.IsZero() {
		t.Errorf("expected cleared stats after Reset, got %+v", stats)
	}
}

func TestStore_ConcurrentRecording(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.RecordGeneration(time.Millisecond, j%2 == 0)
			}
		}()
	}
	wg.Wait()

	stats := store.Snapshot()
	if stats.TotalRequests != 1000 {
		t.Errorf("TotalRequests = %d, want 1000", stats.TotalRequests)
	}
	if stats.TotalSuccess != 500 || stats.TotalErrors != 500 {
		t.Errorf("success/errors = %d/%d, want 500/500", stats.TotalSuccess, stats.TotalErrors)
	}
}
