// azure_provider.go implements the Provider interface against Azure OpenAI
// DALL-E deployments.
package imagegen

import (
	"context"
	"fmt"
	"strings"

	"sdgateway/core"

	"github.com/sashabaranov/go-openai"
)

// AzureProvider implements Provider for Azure OpenAI image generation.
//
// Azure OpenAI differs from standard OpenAI in two ways that matter here:
// deployments are addressed by name instead of model, and some deployments
// (gpt-image-1) reject the style parameter.
//
// Thread Safety: AzureProvider is safe for concurrent use.
type AzureProvider struct {
	client     *openai.Client
	deployment string
}

// NewAzureProvider creates a new Azure OpenAI image generation provider.
//
// Returns an error if:
//   - The API key is empty
//   - The endpoint is empty or not an Azure endpoint
//   - The deployment name is empty
func NewAzureProvider(cfg *core.Config) (*AzureProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("imagegen: API key is required for Azure image generation")
	}

	endpoint := cfg.ImageAPIURL
	if endpoint == "" {
		endpoint = cfg.AzureOpenAIEndpoint
	}
	if endpoint == "" {
		return nil, fmt.Errorf("imagegen: Azure endpoint is required; set IMAGE_API_URL or AZURE_OPENAI_ENDPOINT")
	}

	if !IsAzureEndpoint(endpoint) {
		return nil, fmt.Errorf("imagegen: endpoint (%s) is not an Azure OpenAI endpoint", endpoint)
	}

	deployment := cfg.AzureOpenAIDeployment
	if deployment == "" {
		return nil, fmt.Errorf("imagegen: Azure deployment name is required; set AZURE_OPENAI_DEPLOYMENT")
	}

	clientConfig := openai.DefaultAzureConfig(cfg.OpenAIAPIKey, endpoint)
	if cfg.AzureOpenAIApiVersion != "" {
		clientConfig.APIVersion = cfg.AzureOpenAIApiVersion
	}
	clientConfig.HTTPClient = core.GetHTTPClient(cfg.SDTimeout)

	return &AzureProvider{
		client:     openai.NewClientWithConfig(clientConfig),
		deployment: deployment,
	}, nil
}

// Generate creates an image from the given prompt using the Azure OpenAI
// API and returns the temporary URL of the result.
func (p *AzureProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("imagegen: prompt cannot be empty")
	}

	// Azure uses the deployment name as the model
	req := openai.ImageRequest{
		Prompt:         prompt,
		Model:          p.deployment,
		ResponseFormat: openai.CreateImageResponseFormatURL,
		N:              1,
	}

	// gpt-image-1 deployments reject the style parameter
	if isDalleDeployment(p.deployment) {
		req.Style = openai.CreateImageStyleVivid
	}

	response, err := p.client.CreateImage(ctx, req)
	if err != nil {
		return "", fmt.Errorf("imagegen: Azure image generation failed: %w", err)
	}

	if len(response.Data) == 0 {
		return "", fmt.Errorf("imagegen: Azure returned empty Data array")
	}
	if response.Data[0].URL == "" {
		return "", fmt.Errorf("imagegen: Azure returned empty image URL")
	}

	return response.Data[0].URL, nil
}

// Deployment returns the configured Azure deployment name.
func (p *AzureProvider) Deployment() string {
	return p.deployment
}

// isDalleDeployment checks if the deployment name indicates a DALL-E model.
func isDalleDeployment(deployment string) bool {
	lower := strings.ToLower(deployment)
	return strings.Contains(lower, "dalle3") ||
		strings.Contains(lower, "dall-e") ||
		strings.Contains(lower, "dalle-3")
}

// Ensure AzureProvider implements Provider interface at compile time.
var _ Provider = (*AzureProvider)(nil)
