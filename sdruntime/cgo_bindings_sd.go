//go:build sd && cgo && !stub

// Real CGo implementation of the stable-diffusion.cpp bindings.
// Build with: CGO_ENABLED=1 go build -tags sd
//
// Prerequisites:
//  1. stable-diffusion.cpp compiled as a shared library
//  2. CGO_CFLAGS pointing at the header: -I/path/to/stable-diffusion.cpp
//  3. CGO_LDFLAGS linking the library: -L/path/to/build -lstable-diffusion

package sdruntime

/*
#cgo CFLAGS: -I${SRCDIR}/../vendor/stable-diffusion.cpp
#cgo LDFLAGS: -L${SRCDIR}/../vendor/stable-diffusion.cpp/build -lstable-diffusion

#include <stdlib.h>
#include <stdint.h>

// Minimal declarations for the subset of the stable-diffusion.cpp API used
// here. The full header is pulled in at build time through CGO_CFLAGS.
typedef void sd_ctx_t;

extern sd_ctx_t* sd_ctx_create(const char* model_path, int n_threads);
extern void sd_ctx_free(sd_ctx_t* ctx);
extern uint8_t* sd_txt2img(sd_ctx_t* ctx, const char* prompt, const char* negative_prompt,
                           int width, int height, int steps, float cfg_scale, int64_t seed);
extern void sd_free_image(uint8_t* img);
extern const char* sd_get_backend_info(void);
*/
import "C"

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"
)

// sdContextCounter generates unique IDs for native contexts
var sdContextCounter uint64

// contextMap maps SDContext.id to the underlying C pointer. The pointer is
// kept out of the Go-visible struct so the GC never scans C memory.
var (
	contextMu  sync.Mutex
	contextMap = make(map[uint64]*C.sd_ctx_t)
)

func loadModelImpl(modelPath string) (*SDContext, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
	} else if err != nil {
		return nil, fmt.Errorf("%w: unable to access %s: %v", ErrModelLoadFailed, modelPath, err)
	}

	cModelPath := C.CString(modelPath)
	defer C.free(unsafe.Pointer(cModelPath))

	cCtx := C.sd_ctx_create(cModelPath, C.int(runtime.NumCPU()))
	if cCtx == nil {
		return nil, fmt.Errorf("%w: sd_ctx_create returned null for %s", ErrModelLoadFailed, modelPath)
	}

	id := atomic.AddUint64(&sdContextCounter, 1)
	contextMu.Lock()
	contextMap[id] = cCtx
	contextMu.Unlock()

	return &SDContext{
		id:        id,
		modelPath: modelPath,
		valid:     true,
	}, nil
}

func generateImageImpl(ctx *SDContext, params GenerateParams) (*GenerateResult, error) {
	if ctx == nil || !ctx.valid {
		return nil, fmt.Errorf("%w: context is nil or invalid", ErrGenerationFailed)
	}

	contextMu.Lock()
	cCtx, ok := contextMap[ctx.id]
	contextMu.Unlock()
	if !ok || cCtx == nil {
		return nil, fmt.Errorf("%w: no native context found", ErrGenerationFailed)
	}

	cPrompt := C.CString(params.Prompt)
	defer C.free(unsafe.Pointer(cPrompt))

	cNegPrompt := C.CString(params.NegativePrompt)
	defer C.free(unsafe.Pointer(cNegPrompt))

	seed := params.Seed
	if seed < 0 {
		seed = RandomSeed()
	}

	imgPtr := C.sd_txt2img(
		cCtx,
		cPrompt,
		cNegPrompt,
		C.int(params.Width),
		C.int(params.Height),
		C.int(params.Steps),
		C.float(params.CFGScale),
		C.int64_t(seed),
	)
	if imgPtr == nil {
		return nil, fmt.Errorf("%w: sd_txt2img returned null", ErrGenerationFailed)
	}
	defer C.sd_free_image(imgPtr)

	// The library returns raw RGBA pixels at the requested dimensions
	imgSize := ImageDataSize(params.Width, params.Height)
	pixels := C.GoBytes(unsafe.Pointer(imgPtr), C.int(imgSize))

	pngData, err := EncodeToPNG(pixels, params.Width, params.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding output: %v", ErrGenerationFailed, err)
	}

	return &GenerateResult{
		ImageData: pngData,
		Width:     params.Width,
		Height:    params.Height,
		Seed:      seed,
	}, nil
}

func freeContextImpl(ctx *SDContext) {
	if ctx == nil {
		return
	}

	contextMu.Lock()
	cCtx, ok := contextMap[ctx.id]
	if ok {
		delete(contextMap, ctx.id)
	}
	contextMu.Unlock()

	if ok && cCtx != nil {
		C.sd_ctx_free(cCtx)
	}
	ctx.valid = false
}

func getBackendInfoImpl() string {
	cInfo := C.sd_get_backend_info()
	if cInfo != nil {
		return C.GoString(cInfo)
	}
	return "sd (unknown backend)"
}
