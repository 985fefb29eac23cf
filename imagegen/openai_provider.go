// openai_provider.go implements the Provider interface against the OpenAI
// DALL-E API using the go-openai client.
package imagegen

import (
	"context"
	"fmt"

	"sdgateway/core"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider for OpenAI DALL-E image generation.
//
// Thread Safety: OpenAIProvider is safe for concurrent use.
// The underlying OpenAI client handles connection pooling.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI image generation provider.
//
// Returns an error if:
//   - The API key is empty
//   - The configured endpoint is a local endpoint (localhost, 127.0.0.1),
//     which does not serve the image API
func NewOpenAIProvider(cfg *core.Config) (*OpenAIProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("imagegen: OpenAI API key is required for image generation")
	}

	endpoint := cfg.ImageAPIURL
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}

	if IsLocalEndpoint(endpoint) {
		return nil, fmt.Errorf("imagegen: local endpoint (%s) does not support image generation; "+
			"configure IMAGE_API_URL to use OpenAI or Azure", endpoint)
	}

	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	clientConfig.BaseURL = endpoint
	clientConfig.HTTPClient = core.GetHTTPClient(cfg.SDTimeout)

	model := cfg.OpenAIImageModel
	if model == "" {
		model = "dall-e-3"
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Generate creates an image from the given prompt using the DALL-E API and
// returns the temporary URL of the result.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("imagegen: prompt cannot be empty")
	}

	req := openai.ImageRequest{
		Prompt:         prompt,
		Model:          p.model,
		ResponseFormat: openai.CreateImageResponseFormatURL,
		N:              1,
	}

	// Style parameter is DALL-E 3 only
	if p.model == "dall-e-3" {
		req.Style = openai.CreateImageStyleVivid
	}

	response, err := p.client.CreateImage(ctx, req)
	if err != nil {
		return "", fmt.Errorf("imagegen: OpenAI image generation failed: %w", err)
	}

	if len(response.Data) == 0 {
		return "", fmt.Errorf("imagegen: OpenAI returned empty Data array")
	}
	if response.Data[0].URL == "" {
		return "", fmt.Errorf("imagegen: OpenAI returned empty image URL")
	}

	return response.Data[0].URL, nil
}

// Model returns the configured image model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Ensure OpenAIProvider implements Provider interface at compile time.
var _ Provider = (*OpenAIProvider)(nil)
