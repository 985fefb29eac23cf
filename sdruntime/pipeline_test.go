package sdruntime

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeModelFile creates a placeholder model file for stub-mode loading.
func writeModelFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "model.safetensors")
	if err := os.WriteFile(path, []byte("not a real model"), 0644); err != nil {
		t.Fatalf("failed to create model file: %v", err)
	}
	return path
}

func TestNewPipeline_NoLoadAtConstruction(t *testing.T) {
	// Construction must not touch the filesystem, even for a bogus path.
	pipe := NewPipeline(PipelineConfig{ModelPath: "/nonexistent/model.safetensors"})
	defer pipe.Close()

	if pipe.Loaded() {
		t.Error("pipeline should not be loaded before first Generate")
	}
}

func TestPipeline_GenerateMissingModel(t *testing.T) {
	pipe := NewPipeline(PipelineConfig{ModelPath: "/nonexistent/model.safetensors"})
	defer pipe.Close()

	params := DefaultParams()
	params.Prompt = "a test image"

	_, err := pipe.Generate(context.Background(), params)
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got: %v", err)
	}
	if pipe.Loaded() {
		t.Error("failed load must leave the pipeline unloaded")
	}
}

func TestPipeline_LoadRetryAfterFailure(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.safetensors")

	pipe := NewPipeline(PipelineConfig{ModelPath: modelPath})
	defer pipe.Close()

	params := DefaultParams()
	params.Prompt = "a test image"

	// First attempt fails: the file does not exist yet.
	_, err := pipe.Generate(context.Background(), params)
	if !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound on first attempt, got: %v", err)
	}

	// Create the file and retry. In stub mode the load now succeeds and
	// generation fails at the inference step instead.
	writeModelFile(t, dir)

	_, err = pipe.Generate(context.Background(), params)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed after retry, got: %v", err)
	}
	if !pipe.Loaded() {
		t.Error("pipeline should report loaded after successful model load")
	}
}

func TestPipeline_NoModelPath(t *testing.T) {
	pipe := NewPipeline(PipelineConfig{})
	defer pipe.Close()

	params := DefaultParams()
	params.Prompt = "a test image"

	_, err := pipe.Generate(context.Background(), params)
	if !errors.Is(err, ErrModelNotSet) {
		t.Errorf("expected ErrModelNotSet, got: %v", err)
	}
}

func TestPipeline_InvalidParamsBeforeLoad(t *testing.T) {
	dir := t.TempDir()
	pipe := NewPipeline(PipelineConfig{ModelPath: writeModelFile(t, dir)})
	defer pipe.Close()

	// Empty prompt must be rejected without attempting a model load.
	_, err := pipe.Generate(context.Background(), DefaultParams())
	if !errors.Is(err, ErrInvalidPrompt) {
		t.Errorf("expected ErrInvalidPrompt, got: %v", err)
	}
	if pipe.Loaded() {
		t.Error("validation failure must not trigger a model load")
	}
}

func TestPipeline_GenerateAfterClose(t *testing.T) {
	dir := t.TempDir()
	pipe := NewPipeline(PipelineConfig{ModelPath: writeModelFile(t, dir)})

	if err := pipe.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	params := DefaultParams()
	params.Prompt = "a test image"

	_, err := pipe.Generate(context.Background(), params)
	if !errors.Is(err, ErrPipelineClosed) {
		t.Errorf("expected ErrPipelineClosed, got: %v", err)
	}
}

func TestPipeline_CloseIdempotent(t *testing.T) {
	pipe := NewPipeline(PipelineConfig{ModelPath: "/nonexistent"})

	for i := 0; i < 3; i++ {
		if err := pipe.Close(); err != nil {
			t.Errorf("Close() call %d failed: %v", i+1, err)
		}
	}
}

func TestPipeline_AcquireTimeout(t *testing.T) {
	dir := t.TempDir()
	pipe := NewPipeline(PipelineConfig{ModelPath: writeModelFile(t, dir)})
	defer pipe.Close()

	// Occupy the generation slot so the next request must wait.
	pipe.slot <- struct{}{}
	defer func() { <-pipe.slot }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	params := DefaultParams()
	params.Prompt = "a test image"

	_, err := pipe.Generate(ctx, params)
	if !errors.Is(err, ErrAcquireTimeout) {
		t.Errorf("expected ErrAcquireTimeout, got: %v", err)
	}
}

func TestPipeline_Name(t *testing.T) {
	pipe := NewPipeline(PipelineConfig{})
	defer pipe.Close()

	if pipe.Name() != "local" {
		t.Errorf("expected backend name %q, got %q", "local", pipe.Name())
	}
}
