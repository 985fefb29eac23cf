// CGo wrapper surface for the stable-diffusion.cpp C library.
//
// The real bindings live in cgo_bindings_sd.go behind the "sd" build tag.
// Without that tag (or with the "stub" tag) the stub implementations in
// cgo_bindings_stub.go are used, which validate inputs but cannot produce
// images. This lets the rest of the module build and test without the
// native library installed.
//
// Building with the real library:
//
//	CGO_CFLAGS="-I/path/to/stable-diffusion.cpp" \
//	CGO_LDFLAGS="-L/path/to/stable-diffusion.cpp/build -lstable-diffusion" \
//	CGO_ENABLED=1 go build -tags sd
package sdruntime

// SDContext is an opaque handle to a loaded stable-diffusion model.
// In the real implementation it wraps a C pointer to sd_ctx_t; the stub
// implementation tracks only an internal ID.
type SDContext struct {
	// id is used to look up the native context
	id uint64
	// modelPath stores the path used to load this context
	modelPath string
	// valid indicates if this context is usable
	valid bool
}

// IsValid returns whether this context is valid and usable.
func (c *SDContext) IsValid() bool {
	if c == nil {
		return false
	}
	return c.valid
}

// ModelPath returns the model path used to create this context.
func (c *SDContext) ModelPath() string {
	if c == nil {
		return ""
	}
	return c.modelPath
}

// LoadModel loads a Stable Diffusion model and returns a context for generation.
// The modelPath should point to a .safetensors, .ckpt, or .gguf model file.
//
// Errors:
//   - ErrModelNotFound: modelPath does not exist
//   - ErrModelLoadFailed: the C library failed to load the model
//   - ErrOutOfVRAM: the model does not fit in GPU memory
//
// The returned SDContext must be freed with FreeContext when no longer needed.
func LoadModel(modelPath string) (*SDContext, error) {
	return loadModelImpl(modelPath)
}

// GenerateImage runs txt2img using the provided context and parameters.
// The context must have been created via LoadModel and not yet freed.
// Params are validated before crossing the C boundary.
//
// Errors:
//   - ErrInvalidParams / ErrInvalidPrompt: params fail validation
//   - ErrGenerationFailed: the C library failed to generate
//   - ErrOutOfVRAM: GPU memory exhausted during inference
//
// The returned GenerateResult contains PNG image data.
func GenerateImage(ctx *SDContext, params GenerateParams) (*GenerateResult, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}

	return generateImageImpl(ctx, params)
}

// FreeContext releases resources associated with an SDContext.
// Calling FreeContext on a nil or already-freed context is safe (no-op).
// After FreeContext returns the context must not be used.
func FreeContext(ctx *SDContext) {
	freeContextImpl(ctx)
}

// GetBackendInfo returns a human-readable description of the compute backend
// (CUDA, Metal, CPU, or stub).
func GetBackendInfo() string {
	return getBackendInfoImpl()
}
