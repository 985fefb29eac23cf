//go:build !sd || stub

// Stub implementation of the CGo bindings for builds without
// stable-diffusion.cpp. Build with: go build (no tags) or -tags stub.

package sdruntime

import (
	"fmt"
	"os"
	"sync/atomic"
)

// stubContextCounter generates unique IDs for stub contexts
var stubContextCounter uint64

// loadModelImpl validates that the model file exists but does not load it.
func loadModelImpl(modelPath string) (*SDContext, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
	} else if err != nil {
		return nil, fmt.Errorf("%w: unable to access %s: %v", ErrModelLoadFailed, modelPath, err)
	}

	return &SDContext{
		id:        atomic.AddUint64(&stubContextCounter, 1),
		modelPath: modelPath,
		valid:     true,
	}, nil
}

// generateImageImpl reports that the native library is unavailable.
func generateImageImpl(ctx *SDContext, params GenerateParams) (*GenerateResult, error) {
	if ctx == nil || !ctx.valid {
		return nil, fmt.Errorf("%w: context is nil or invalid", ErrGenerationFailed)
	}

	return nil, fmt.Errorf("%w: stable-diffusion.cpp library not available (stub mode). "+
		"Build with CGO and the 'sd' tag to enable image generation", ErrGenerationFailed)
}

// freeContextImpl marks the context as invalid.
func freeContextImpl(ctx *SDContext) {
	if ctx == nil {
		return
	}
	ctx.valid = false
}

func getBackendInfoImpl() string {
	return "stub (no stable-diffusion.cpp library linked)"
}
