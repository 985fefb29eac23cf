// pipeline.go implements the lazily loaded, process-wide generation pipeline.
// It composes LoadModel/GenerateImage from cgo_bindings.go with the
// validation atoms in types.go and prompt.go.

package sdruntime

import (
	"context"
	"fmt"
	"sync"
)

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	// ModelPath is the path to the SD model file. Required.
	ModelPath string
	// DefaultNegativePrompt is applied when a request supplies none.
	DefaultNegativePrompt string
}

// Pipeline is a lazily initialized handle to a loaded Stable Diffusion model.
//
// The model is loaded on the first Generate call. A failed load leaves the
// pipeline unloaded so a later call can retry; a successful load is kept for
// the life of the pipeline and never repeated. Generation is serialized
// through a single slot because one GPU context cannot run concurrent
// inference.
//
// Pipeline is safe for concurrent use.
type Pipeline struct {
	cfg PipelineConfig

	mu     sync.Mutex // guards sdCtx and closed
	sdCtx  *SDContext // nil until the first successful load
	closed bool

	// slot serializes generation. Capacity 1: one inference at a time.
	slot chan struct{}
}

// NewPipeline creates an unloaded pipeline. No model I/O happens here; the
// model is loaded on first use.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		cfg:  cfg,
		slot: make(chan struct{}, 1),
	}
}

// Name identifies this backend in logs and history records.
func (p *Pipeline) Name() string {
	return "local"
}

// Loaded reports whether the model has been successfully loaded.
// It never triggers a load.
func (p *Pipeline) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sdCtx != nil
}

// ensureLoaded loads the model if it is not already loaded.
// Callers must NOT hold p.mu.
func (p *Pipeline) ensureLoaded() (*SDContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPipelineClosed
	}
	if p.sdCtx != nil {
		return p.sdCtx, nil
	}
	if p.cfg.ModelPath == "" {
		return nil, ErrModelNotSet
	}

	sdCtx, err := LoadModel(p.cfg.ModelPath)
	if err != nil {
		// Leave sdCtx nil: the next Generate call retries the load.
		return nil, err
	}
	p.sdCtx = sdCtx
	return sdCtx, nil
}

// Generate produces an image from the given parameters.
//
// The first call loads the model, so it can take considerably longer than
// subsequent calls. Requests are serialized: if another generation is in
// flight, Generate blocks until it finishes or ctx is done, in which case
// ErrAcquireTimeout is returned.
//
// A seed of -1 is resolved to a random seed; the seed actually used is
// returned in the result.
func (p *Pipeline) Generate(ctx context.Context, params GenerateParams) (*GenerateResult, error) {
	params.Prompt = SanitizePrompt(params.Prompt)
	if params.NegativePrompt == "" {
		params.NegativePrompt = p.cfg.DefaultNegativePrompt
	}
	if err := ValidateParams(params); err != nil {
		return nil, err
	}
	if params.Seed < 0 {
		params.Seed = RandomSeed()
	}

	// Acquire the generation slot, honoring cancellation while waiting.
	select {
	case p.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrAcquireTimeout, ctx.Err())
	}
	defer func() { <-p.slot }()

	// Re-check cancellation: the wait above may have been long.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquireTimeout, err)
	}

	sdCtx, err := p.ensureLoaded()
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	result, err := GenerateImage(sdCtx, params)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}

	if err := ValidateImageData(result.ImageData); err != nil {
		return nil, fmt.Errorf("generated image validation failed: %w", err)
	}

	return result, nil
}

// ModelPath returns the configured model path.
func (p *Pipeline) ModelPath() string {
	return p.cfg.ModelPath
}

// BackendInfo returns a description of the compute backend in use.
func (p *Pipeline) BackendInfo() string {
	return GetBackendInfo()
}

// Close frees the loaded model, if any. After Close, Generate returns
// ErrPipelineClosed. Close is safe to call multiple times.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.sdCtx != nil {
		FreeContext(p.sdCtx)
		p.sdCtx = nil
	}
	return nil
}
