package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"sdgateway/core"
	"sdgateway/sdruntime"
)

// maxRequestBody caps POST /api/generate bodies. Prompts are short; a
// larger body is a client error.
const maxRequestBody = 64 << 10

// parseGenerateRequest extracts a GenerateRequest from either the query
// string (GET) or the JSON body (POST). A body that is not valid JSON is
// a client error.
func parseGenerateRequest(r *http.Request) (*GenerateRequest, error) {
	if r.Method == http.MethodPost {
		return parseGenerateBody(r.Body)
	}
	return parseGenerateQuery(r.URL.Query())
}

func parseGenerateBody(body io.Reader) (*GenerateRequest, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxRequestBody))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	// An empty body means all defaults, matching GET with no parameters.
	if len(strings.TrimSpace(string(data))) == 0 {
		return &GenerateRequest{}, nil
	}

	var req GenerateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return &req, nil
}

func parseGenerateQuery(q url.Values) (*GenerateRequest, error) {
	req := &GenerateRequest{
		Prompt:         q.Get("prompt"),
		NegativePrompt: q.Get("negative_prompt"),
		Preset:         q.Get("preset"),
	}

	var err error
	if req.NumSteps, err = queryInt(q, "num_steps"); err != nil {
		return nil, err
	}
	if req.Width, err = queryInt(q, "width"); err != nil {
		return nil, err
	}
	if req.Height, err = queryInt(q, "height"); err != nil {
		return nil, err
	}
	if req.Thumbnail, err = queryInt(q, "thumbnail"); err != nil {
		return nil, err
	}
	if req.Seed, err = queryInt64(q, "seed"); err != nil {
		return nil, err
	}
	if req.GuidanceScale, err = queryFloat(q, "guidance_scale"); err != nil {
		return nil, err
	}

	return req, nil
}

func queryInt(q url.Values, key string) (*int, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return &v, nil
}

func queryInt64(q url.Values, key string) (*int64, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return &v, nil
}

func queryFloat(q url.Values, key string) (*float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return &v, nil
}

// resolveParams merges the request with preset values and configured
// defaults into concrete generation parameters. Precedence is request,
// then preset, then configuration.
func resolveParams(req *GenerateRequest, cfg *core.Config, presets core.Presets) (sdruntime.GenerateParams, error) {
	params := sdruntime.GenerateParams{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Width:          cfg.SDImageSize,
		Height:         cfg.SDImageSize,
		Steps:          cfg.SDInferenceSteps,
		CFGScale:       cfg.SDGuidanceScale,
		Seed:           -1,
	}
	if params.NegativePrompt == "" {
		params.NegativePrompt = cfg.SDNegativePrompt
	}

	if req.Preset != "" {
		preset, err := presets.Get(req.Preset)
		if err != nil {
			return sdruntime.GenerateParams{}, err
		}
		if preset.Steps > 0 {
			params.Steps = preset.Steps
		}
		if preset.GuidanceScale > 0 {
			params.CFGScale = preset.GuidanceScale
		}
		if preset.Width > 0 {
			params.Width = preset.Width
		}
		if preset.Height > 0 {
			params.Height = preset.Height
		}
		if preset.NegativePrompt != "" && req.NegativePrompt == "" {
			params.NegativePrompt = preset.NegativePrompt
		}
	}

	// Explicit request values win over preset and configuration.
	if req.NumSteps != nil {
		params.Steps = *req.NumSteps
	}
	if req.GuidanceScale != nil {
		params.CFGScale = *req.GuidanceScale
	}
	if req.Width != nil {
		params.Width = *req.Width
	}
	if req.Height != nil {
		params.Height = *req.Height
	}
	if req.Seed != nil {
		params.Seed = *req.Seed
	}

	return params, nil
}
