package core

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Config holds all configuration values for the gateway.
type Config struct {
	// HTTP server
	Host            string // Bind address (default: 0.0.0.0)
	Port            int    // Listen port (default: 8080)
	LogFile         string // Log file path (default: sdgateway.log)
	ShutdownTimeout time.Duration

	// Local Stable Diffusion runtime
	SDModelPath      string  // Path to SD model file (.safetensors, .ckpt, or .gguf)
	SDImageSize      int     // Default image output size in pixels (default: 512)
	SDInferenceSteps int     // Default denoising steps (default: 25, range: 1-100)
	SDGuidanceScale  float64 // Default CFG scale (default: 7.5, range: 1.0-30.0)
	SDNegativePrompt string  // Default negative prompt for generation
	SDTimeout        time.Duration

	// Cloud fallback (OpenAI / Azure OpenAI image generation)
	OpenAIAPIKey          string
	OpenAIImageModel      string // Image model (default: dall-e-3)
	ImageAPIURL           string // Override for the image API endpoint
	AzureOpenAIEndpoint   string // e.g. https://your-resource.openai.azure.com/
	AzureOpenAIDeployment string // Azure deployment name for image generation
	AzureOpenAIApiVersion string // Azure API version

	// Generation history
	HistoryDBPath string // SQLite database path; empty disables history

	// Parameter presets
	PresetsPath string // presets.yaml path; empty uses built-in presets

	// GPU metrics
	GPUPollInterval time.Duration
	NvidiaSMIPath   string
}

// Configuration defaults.
const (
	DefaultPort            = 8080
	DefaultImageSize       = 512
	DefaultInferenceSteps  = 25
	DefaultGuidanceScale   = 7.5
	DefaultTimeoutSeconds  = 120
	DefaultShutdownSeconds = 30
	DefaultGPUPollSeconds  = 5
)

// LoadConfig reads configuration from environment variables.
// Missing or malformed values fall back to defaults; a missing model path is
// not an error here because cloud fallback may be configured instead.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Host:            GetEnvOrDefault("HOST", "0.0.0.0"),
		Port:            ParseIntEnv("PORT", DefaultPort),
		LogFile:         GetEnvOrDefault("LOG_FILE", "sdgateway.log"),
		ShutdownTimeout: ParseDurationEnv("SHUTDOWN_TIMEOUT_SECONDS", DefaultShutdownSeconds),

		SDModelPath:      GetEnvOrDefault("SD_MODEL_PATH", ""),
		SDImageSize:      ParseIntEnv("SD_IMAGE_SIZE", DefaultImageSize),
		SDInferenceSteps: ParseIntEnv("SD_INFERENCE_STEPS", DefaultInferenceSteps),
		SDGuidanceScale:  ParseFloat64Env("SD_GUIDANCE_SCALE", DefaultGuidanceScale),
		SDNegativePrompt: GetEnvOrDefault("SD_NEGATIVE_PROMPT", ""),
		SDTimeout:        ParseDurationEnv("SD_TIMEOUT_SECONDS", DefaultTimeoutSeconds),

		OpenAIAPIKey:          GetEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIImageModel:      GetEnvOrDefault("OPENAI_IMAGE_MODEL", "dall-e-3"),
		ImageAPIURL:           GetEnvOrDefault("IMAGE_API_URL", ""),
		AzureOpenAIEndpoint:   GetEnvOrDefault("AZURE_OPENAI_ENDPOINT", ""),
		AzureOpenAIDeployment: GetEnvOrDefault("AZURE_OPENAI_DEPLOYMENT", ""),
		AzureOpenAIApiVersion: GetEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-15-preview"),

		HistoryDBPath: GetEnvOrDefault("HISTORY_DB_PATH", "sdgateway.sqlite"),
		PresetsPath:   GetEnvOrDefault("PRESETS_PATH", ""),

		GPUPollInterval: ParseDurationEnv("GPU_POLL_SECONDS", DefaultGPUPollSeconds),
		NvidiaSMIPath:   GetEnvOrDefault("NVIDIA_SMI_PATH", "nvidia-smi"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.SDImageSize < 128 || c.SDImageSize > 2048 || c.SDImageSize%8 != 0 {
		return fmt.Errorf("%w: SD_IMAGE_SIZE %d must be 128-2048 and divisible by 8",
			ErrInvalidConfig, c.SDImageSize)
	}
	if c.SDInferenceSteps < 1 || c.SDInferenceSteps > 100 {
		return fmt.Errorf("%w: SD_INFERENCE_STEPS %d must be 1-100", ErrInvalidConfig, c.SDInferenceSteps)
	}
	if c.SDGuidanceScale < 1.0 || c.SDGuidanceScale > 30.0 {
		return fmt.Errorf("%w: SD_GUIDANCE_SCALE %.2f must be 1.0-30.0", ErrInvalidConfig, c.SDGuidanceScale)
	}
	if c.AzureOpenAIEndpoint != "" && !strings.Contains(c.AzureOpenAIEndpoint, "openai.azure.com") {
		return fmt.Errorf("%w: AZURE_OPENAI_ENDPOINT %q is not an Azure OpenAI endpoint",
			ErrInvalidConfig, c.AzureOpenAIEndpoint)
	}
	return nil
}

// HasLocalModel reports whether a local SD model is configured.
func (c *Config) HasLocalModel() bool {
	return c.SDModelPath != ""
}

// HasCloudFallback reports whether a cloud image provider is configured.
func (c *Config) HasCloudFallback() bool {
	return c.OpenAIAPIKey != ""
}

// Addr returns the host:port string the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetHTTPClient returns an HTTP client with the given timeout.
// A zero timeout disables the client-side deadline (long downloads).
func GetHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
