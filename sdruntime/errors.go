package sdruntime

import "errors"

// Sentinel errors for SD runtime operations.
var (
	// Model-related errors
	ErrModelNotFound   = errors.New("sdruntime: model file not found")
	ErrModelLoadFailed = errors.New("sdruntime: failed to load model")
	ErrModelNotSet     = errors.New("sdruntime: no model path configured")

	// Generation errors
	ErrGenerationFailed  = errors.New("sdruntime: image generation failed")
	ErrGenerationTimeout = errors.New("sdruntime: image generation timed out")

	// Input validation errors
	ErrInvalidPrompt = errors.New("sdruntime: invalid prompt")
	ErrInvalidParams = errors.New("sdruntime: invalid generation parameters")

	// Hardware/resource errors
	ErrCUDANotAvailable = errors.New("sdruntime: CUDA not available")
	ErrOutOfVRAM        = errors.New("sdruntime: out of VRAM")

	// Pipeline lifecycle errors
	ErrPipelineClosed = errors.New("sdruntime: pipeline is closed")
	ErrAcquireTimeout = errors.New("sdruntime: timeout waiting for generation slot")
)
