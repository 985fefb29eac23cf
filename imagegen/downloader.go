// downloader.go fetches generated images from the temporary URLs returned
// by the providers.
package imagegen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxDownloadBytes caps provider image downloads (DALL-E PNGs run a few MB).
const maxDownloadBytes = 32 << 20

// Downloader fetches generated images into memory. Provider URLs expire
// after about an hour, so results are downloaded immediately after
// generation.
//
// Thread Safety: Downloader is safe for concurrent use.
type Downloader struct {
	client *http.Client
}

// NewDownloader creates a downloader with the given HTTP client.
// A nil client gets a default with a 60 second timeout.
func NewDownloader(client *http.Client) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Downloader{client: client}
}

// DownloadBytes downloads an image and returns the raw bytes along with the
// Content-Type header value.
func (d *Downloader) DownloadBytes(ctx context.Context, url string) ([]byte, string, error) {
	if url == "" {
		return nil, "", fmt.Errorf("imagegen: URL cannot be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("imagegen: failed to create download request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("imagegen: failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("imagegen: download failed with status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !isImageContentType(contentType) {
		return nil, "", fmt.Errorf("imagegen: unexpected content type %q", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("imagegen: failed to read image data: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, "", fmt.Errorf("imagegen: image exceeds %d byte limit", maxDownloadBytes)
	}

	return data, contentType, nil
}

// isImageContentType checks whether a Content-Type header denotes an image,
// ignoring parameters like charset.
func isImageContentType(contentType string) bool {
	lower := strings.ToLower(contentType)
	if idx := strings.Index(lower, ";"); idx != -1 {
		lower = lower[:idx]
	}
	return strings.HasPrefix(strings.TrimSpace(lower), "image/")
}
