package server

import (
	"context"

	"sdgateway/sdruntime"
)

// Backend generates images from text prompts. The local pipeline and
// the cloud fallback both satisfy this interface.
type Backend interface {
	// Generate produces a PNG image for the given parameters. The
	// implementation serializes concurrent calls internally.
	Generate(ctx context.Context, params sdruntime.GenerateParams) (*sdruntime.GenerateResult, error)

	// Loaded reports whether the model is resident in memory. Cloud
	// backends always report true.
	Loaded() bool

	// Name identifies the backend in responses and logs.
	Name() string
}
