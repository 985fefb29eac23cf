// Package metrics provides GPU monitoring and generation statistics for the
// gateway. This file contains pure data types with no behavior.
package metrics

import "time"

// GPUMetrics represents a single sample of GPU resource utilization.
// Memory values are in bytes.
type GPUMetrics struct {
	// Name is the GPU device name as reported by the driver
	Name string `json:"name"`

	// Utilization is the GPU utilization percentage (0-100)
	Utilization float64 `json:"utilization"`

	// Temperature is the GPU temperature in Celsius
	Temperature float64 `json:"temperature"`

	// MemoryTotal is the total GPU memory in bytes
	MemoryTotal int64 `json:"memory_total"`

	// MemoryUsed is the GPU memory currently in use (bytes)
	MemoryUsed int64 `json:"memory_used"`

	// MemoryFree is the available GPU memory (bytes)
	MemoryFree int64 `json:"memory_free"`
}

// MemoryUsedGB returns the used GPU memory in gigabytes.
func (m GPUMetrics) MemoryUsedGB() float64 {
	return float64(m.MemoryUsed) / (1024 * 1024 * 1024)
}

// MemoryTotalGB returns the total GPU memory in gigabytes.
func (m GPUMetrics) MemoryTotalGB() float64 {
	return float64(m.MemoryTotal) / (1024 * 1024 * 1024)
}

// GenerationStats represents aggregated image generation statistics.
type GenerationStats struct {
	// TotalRequests is the total number of generation requests processed
	TotalRequests int64 `json:"total_requests"`

	// TotalSuccess is the count of successful generations
	TotalSuccess int64 `json:"total_success"`

	// TotalErrors is the count of failed generations
	TotalErrors int64 `json:"total_errors"`

	// AvgDuration is the average duration of successful generations
	AvgDuration time.Duration `json:"avg_duration"`

	// LastGeneration is the completion time of the most recent request
	// (zero value if no requests have been processed)
	LastGeneration time.Time `json:"last_generation,omitempty"`
}

// SuccessRate returns the percentage of successful generations (0-100).
// Returns 0 when no requests have been processed.
func (s GenerationStats) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.TotalSuccess) / float64(s.TotalRequests) * 100
}
