package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestMakeThumbnail(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		size  int
		wantW int
		wantH int
	}{
		{name: "square downscale", w: 256, h: 256, size: 64, wantW: 64, wantH: 64},
		{name: "landscape", w: 200, h: 100, size: 50, wantW: 50, wantH: 25},
		{name: "portrait", w: 100, h: 200, size: 50, wantW: 25, wantH: 50},
		{name: "already small", w: 32, h: 32, size: 64, wantW: 32, wantH: 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thumb, err := makeThumbnail(encodePNG(t, tt.w, tt.h), tt.size)
			if err != nil {
				t.Fatalf("makeThumbnail: %v", err)
			}
			gotW, gotH := decodeDims(t, thumb)
			if gotW != tt.wantW || gotH != tt.wantH {
				t.Errorf("dims = %dx%d, want %dx%d", gotW, gotH, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestMakeThumbnail_SizeOutOfRange(t *testing.T) {
	data := encodePNG(t, 64, 64)
	if _, err := makeThumbnail(data, MinThumbnailSize-1); err == nil {
		t.Error("expected error for size below minimum")
	}
	if _, err := makeThumbnail(data, MaxThumbnailSize+1); err == nil {
		t.Error("expected error for size above maximum")
	}
}

func TestMakeThumbnail_BadData(t *testing.T) {
	if _, err := makeThumbnail([]byte("not a png"), 64); err == nil {
		t.Error("expected error for invalid image data")
	}
}

func TestThumbnailDims_NeverZero(t *testing.T) {
	w, h := thumbnailDims(4096, 1, 64)
	if w != 64 || h < 1 {
		t.Errorf("dims = %dx%d, height must stay at least 1", w, h)
	}
}
