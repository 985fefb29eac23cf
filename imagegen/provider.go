package imagegen

import "context"

// Provider is the interface for cloud image generation providers.
// Each provider (OpenAI, Azure) implements this interface so the backend
// can swap between them based on configuration.
//
// Generate takes a prompt and returns the URL of the generated image.
// Downloading the image is handled separately by the Downloader.
type Provider interface {
	// Generate creates an image from the given prompt and returns its URL.
	// The URL is temporary (providers expire them after about an hour) and
	// should be downloaded promptly.
	Generate(ctx context.Context, prompt string) (string, error)
}
