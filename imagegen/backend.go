// backend.go adapts a cloud Provider to the generation backend contract used
// by the HTTP server: validated params in, PNG result out.
package imagegen

import (
	"context"
	"fmt"

	"sdgateway/core"
	"sdgateway/sdruntime"
)

// CloudBackend generates images through a cloud Provider and downloads the
// result into memory. It satisfies the same contract as the local pipeline,
// so the server can fall back to it when no local model is configured.
//
// Cloud providers pick their own output size and ignore seeds, steps, and
// CFG scale; those parameters are validated but only the prompt crosses the
// wire. The seed in the result is the resolved request seed, recorded for
// history rows even though it did not influence the output.
type CloudBackend struct {
	provider   Provider
	downloader *Downloader
	name       string
}

// NewCloudBackend selects a provider from configuration and wraps it.
// Azure is chosen when an Azure endpoint is configured; otherwise OpenAI.
func NewCloudBackend(cfg *core.Config) (*CloudBackend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}

	endpoint := cfg.ImageAPIURL
	if endpoint == "" {
		endpoint = cfg.AzureOpenAIEndpoint
	}

	var (
		provider Provider
		name     string
		err      error
	)
	if IsAzureEndpoint(endpoint) {
		provider, err = NewAzureProvider(cfg)
		name = "azure"
	} else {
		provider, err = NewOpenAIProvider(cfg)
		name = "openai"
	}
	if err != nil {
		return nil, err
	}

	return &CloudBackend{
		provider:   provider,
		downloader: NewDownloader(core.GetHTTPClient(cfg.SDTimeout)),
		name:       name,
	}, nil
}

// NewCloudBackendWithProvider wraps an explicit provider. Used in tests.
func NewCloudBackendWithProvider(provider Provider, downloader *Downloader, name string) *CloudBackend {
	if downloader == nil {
		downloader = NewDownloader(nil)
	}
	return &CloudBackend{provider: provider, downloader: downloader, name: name}
}

// Name identifies this backend in logs and history records.
func (b *CloudBackend) Name() string {
	return b.name
}

// Loaded always reports true: cloud backends have no local model to load.
func (b *CloudBackend) Loaded() bool {
	return true
}

// Generate validates params, requests an image from the provider, downloads
// it, and returns the PNG bytes with their actual dimensions.
func (b *CloudBackend) Generate(ctx context.Context, params sdruntime.GenerateParams) (*sdruntime.GenerateResult, error) {
	params.Prompt = sdruntime.SanitizePrompt(params.Prompt)
	if err := sdruntime.ValidateParams(params); err != nil {
		return nil, err
	}
	if params.Seed < 0 {
		params.Seed = sdruntime.RandomSeed()
	}

	url, err := b.provider.Generate(ctx, params.Prompt)
	if err != nil {
		return nil, err
	}

	data, _, err := b.downloader.DownloadBytes(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := sdruntime.ValidateImageData(data); err != nil {
		return nil, fmt.Errorf("imagegen: provider returned invalid image: %w", err)
	}

	// The provider decides the output size; report what actually came back
	width, height, err := sdruntime.DecodePNGSize(data)
	if err != nil {
		return nil, fmt.Errorf("imagegen: reading image dimensions: %w", err)
	}

	return &sdruntime.GenerateResult{
		ImageData: data,
		Width:     width,
		Height:    height,
		Seed:      params.Seed,
	}, nil
}

// Close is a no-op; cloud backends hold no local resources.
func (b *CloudBackend) Close() error {
	return nil
}
