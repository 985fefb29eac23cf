// Package core provides configuration and shared primitives for sdgateway.
package core

import "errors"

// Sentinel errors for configuration and startup validation.
var (
	// ErrInvalidConfig indicates a configuration value failed validation.
	ErrInvalidConfig = errors.New("core: invalid configuration")

	// ErrNoBackend indicates neither a local model nor a cloud provider
	// is configured, so the gateway cannot serve generate requests.
	ErrNoBackend = errors.New("core: no generation backend configured")

	// ErrPresetNotFound indicates a requested parameter preset does not exist.
	ErrPresetNotFound = errors.New("core: preset not found")
)
