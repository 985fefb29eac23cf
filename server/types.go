// Package server provides the HTTP API and demo page for the gateway.
// This file contains the JSON request and response shapes.
package server

import "sdgateway/metrics"

// GenerateRequest is the JSON body accepted by POST /api/generate.
// The same fields are accepted as query parameters on GET.
type GenerateRequest struct {
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negative_prompt,omitempty"`
	NumSteps       *int     `json:"num_steps,omitempty"`
	GuidanceScale  *float64 `json:"guidance_scale,omitempty"`
	Width          *int     `json:"width,omitempty"`
	Height         *int     `json:"height,omitempty"`
	Seed           *int64   `json:"seed,omitempty"`
	Preset         string   `json:"preset,omitempty"`
	Thumbnail      *int     `json:"thumbnail,omitempty"`
}

// GenerateResponse is returned on successful generation.
// Image is the base64-encoded PNG.
type GenerateResponse struct {
	Success    bool   `json:"success"`
	Prompt     string `json:"prompt"`
	Image      string `json:"image"`
	Thumbnail  string `json:"thumbnail,omitempty"`
	Format     string `json:"format"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Seed       int64  `json:"seed"`
	DurationMS int64  `json:"duration_ms"`
	Backend    string `json:"backend,omitempty"`
}

// ErrorResponse is returned for all failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// GPUInfo is the GPU summary embedded in health responses.
// Empty when no GPU is available.
type GPUInfo struct {
	Name          string  `json:"name,omitempty"`
	MemoryTotalGB float64 `json:"memory_total_gb,omitempty"`
	MemoryUsedGB  float64 `json:"memory_used_gb,omitempty"`
	Utilization   float64 `json:"utilization,omitempty"`
	Temperature   float64 `json:"temperature,omitempty"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status       string  `json:"status"`
	GPUAvailable bool    `json:"gpu_available"`
	GPUInfo      GPUInfo `json:"gpu_info"`
	ModelLoaded  bool    `json:"model_loaded"`
	Backend      string  `json:"backend,omitempty"`
}

// VersionResponse is returned by GET /api/version.
type VersionResponse struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
}

// GPUResponse is returned by GET /api/gpu.
type GPUResponse struct {
	Available bool                 `json:"available"`
	Current   metrics.GPUMetrics   `json:"current"`
	History   []metrics.GPUMetrics `json:"history,omitempty"`
}

// StatsResponse is returned by GET /api/stats.
type StatsResponse struct {
	Generation metrics.GenerationStats `json:"generation"`
}
