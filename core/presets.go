package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preset is a named bundle of generation parameters. Fields left at their
// zero value do not override the request or configuration defaults.
type Preset struct {
	Steps          int     `yaml:"steps"`
	GuidanceScale  float64 `yaml:"guidance_scale"`
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	NegativePrompt string  `yaml:"negative_prompt"`
}

// Presets maps preset names to parameter bundles.
type Presets map[string]Preset

// DefaultPresets returns the built-in parameter presets used when no
// presets.yaml is configured.
func DefaultPresets() Presets {
	return Presets{
		"fast": {
			Steps:         12,
			GuidanceScale: 7.0,
			Width:         512,
			Height:        512,
		},
		"balanced": {
			Steps:         25,
			GuidanceScale: 7.5,
			Width:         512,
			Height:        512,
		},
		"quality": {
			Steps:          50,
			GuidanceScale:  8.0,
			Width:          768,
			Height:         768,
			NegativePrompt: "ugly, blurry, low quality, deformed",
		},
	}
}

// LoadPresets reads presets from a YAML file. An empty path returns the
// built-in defaults; a missing file is an error so typos in PRESETS_PATH
// are caught at startup.
func LoadPresets(path string) (Presets, error) {
	if path == "" {
		return DefaultPresets(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("core: read presets file: %w", err)
	}

	var presets Presets
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("core: parse presets file: %w", err)
	}
	if len(presets) == 0 {
		return nil, fmt.Errorf("%w: presets file %s defines no presets", ErrInvalidConfig, path)
	}

	return presets, nil
}

// Get returns the preset with the given name.
func (p Presets) Get(name string) (Preset, error) {
	preset, ok := p[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return preset, nil
}

// Names returns the defined preset names (unordered).
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	return names
}
