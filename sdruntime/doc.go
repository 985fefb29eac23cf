// Package sdruntime provides a CGo wrapper for stable-diffusion.cpp text-to-image generation.
//
// The package is organized around a Pipeline: a lazily loaded, process-wide
// handle to a Stable Diffusion model. The model is loaded on the first call
// to Generate, not at construction, so a server can start instantly and pay
// the load cost on the first request. Generation is serialized because a
// single GPU context is not safe for concurrent inference.
//
// # Quick Start
//
//	pipe := sdruntime.NewPipeline(sdruntime.PipelineConfig{
//	    ModelPath: "/models/sd-v1-5.safetensors",
//	})
//	defer pipe.Close()
//
//	params := sdruntime.DefaultParams()
//	params.Prompt = "a sunset over mountains"
//
//	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
//	defer cancel()
//
//	result, err := pipe.Generate(ctx, params)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("output.png", result.ImageData, 0644)
//
// # Lazy Loading and Retry
//
// The first Generate call loads the model. If loading fails (missing file,
// out of VRAM), the pipeline stays unloaded and the NEXT Generate call
// retries the load. Once a load succeeds the handle is kept for the life
// of the pipeline and never reloaded.
//
// # Build Tags
//
// Two build modes are supported:
//
//   - Stub mode (default): go build
//     Model loading validates the file path; generation returns a
//     deterministic placeholder error. Useful for testing request plumbing.
//
//   - Real mode: CGO_ENABLED=1 go build -tags sd
//     Requires stable-diffusion.cpp compiled as a shared library.
//
// # Error Handling
//
// Domain errors are exposed as sentinels, checkable with errors.Is:
//
//	_, err := pipe.Generate(ctx, params)
//	if errors.Is(err, sdruntime.ErrOutOfVRAM) {
//	    // reduce image size
//	}
package sdruntime
