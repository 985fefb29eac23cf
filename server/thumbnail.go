package server

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// Thumbnail size bounds. The thumbnail parameter names the longest edge
// in pixels.
const (
	MinThumbnailSize = 16
	MaxThumbnailSize = 512
)

// makeThumbnail scales a PNG down so its longest edge is size pixels,
// preserving aspect ratio. Images already within the bound are re-encoded
// unchanged.
func makeThumbnail(pngData []byte, size int) ([]byte, error) {
	if size < MinThumbnailSize || size > MaxThumbnailSize {
		return nil, fmt.Errorf("thumbnail size %d out of range [%d, %d]", size, MinThumbnailSize, MaxThumbnailSize)
	}

	src, err := png.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	tw, th := thumbnailDims(w, h, size)

	var out image.Image = src
	if tw != w || th != h {
		dst := image.NewRGBA(image.Rect(0, 0, tw, th))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// thumbnailDims computes target dimensions with the longest edge clamped
// to size. Both dimensions stay at least 1.
func thumbnailDims(w, h, size int) (int, int) {
	if w <= size && h <= size {
		return w, h
	}
	if w >= h {
		th := h * size / w
		if th < 1 {
			th = 1
		}
		return size, th
	}
	tw := w * size / h
	if tw < 1 {
		tw = 1
	}
	return tw, size
}
