// Package static provides the embedded assets for the demo page.
package static

import (
	"embed"
	"io/fs"
)

// Assets contains the demo page and its supporting files.
//
//go:embed index.html css js
var Assets embed.FS

// GetFS returns the embedded filesystem for use with HTTP handlers.
func GetFS() fs.FS {
	return Assets
}

// ReadFile reads a file from the embedded filesystem.
func ReadFile(name string) ([]byte, error) {
	return Assets.ReadFile(name)
}
