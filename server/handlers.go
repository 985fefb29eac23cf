package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sdgateway/core"
	"sdgateway/db"
	"sdgateway/metrics"
	"sdgateway/sdruntime"
)

// Handlers holds the dependencies shared by all HTTP handlers.
type Handlers struct {
	cfg     *core.Config
	presets core.Presets
	backend Backend

	gpu         *metrics.GPUCollector
	stats       *metrics.Store
	repo        *db.Repository
	broadcaster *Broadcaster

	logger *zap.Logger
}

// NewHandlers creates the handler set. gpu, repo and broadcaster may be
// nil; the corresponding features degrade gracefully.
func NewHandlers(cfg *core.Config, presets core.Presets, backend Backend, gpu *metrics.GPUCollector, stats *metrics.Store, repo *db.Repository, broadcaster *Broadcaster, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stats == nil {
		stats = metrics.NewStore()
	}
	if presets == nil {
		presets = core.DefaultPresets()
	}
	return &Handlers{
		cfg:         cfg,
		presets:     presets,
		backend:     backend,
		gpu:         gpu,
		stats:       stats,
		repo:        repo,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// HandleGenerate serves GET and POST /api/generate.
func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, err := parseGenerateRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "Please provide a 'prompt' parameter")
		return
	}

	params, err := resolveParams(req, h.cfg, h.presets)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Reject a bad thumbnail size before spending time on generation.
	if req.Thumbnail != nil {
		if s := *req.Thumbnail; s < MinThumbnailSize || s > MaxThumbnailSize {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("thumbnail size %d out of range [%d, %d]", s, MinThumbnailSize, MaxThumbnailSize))
			return
		}
	}

	id := uuid.NewString()
	prompt := sdruntime.SanitizePrompt(params.Prompt)

	if h.broadcaster != nil {
		h.broadcaster.BroadcastGenerationUpdate(GenerationUpdateData{
			ID:      id,
			Status:  GenerationStatusStarted,
			Prompt:  prompt,
			Backend: h.backend.Name(),
		})
	}

	ctx := r.Context()
	if h.cfg.SDTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.SDTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := h.backend.Generate(ctx, params)
	duration := time.Since(start)

	if err != nil {
		h.finishGeneration(id, params, duration, err)
		h.logger.Warn("generation failed",
			zap.String("id", id),
			zap.Duration("duration", duration),
			zap.Error(err))
		writeError(w, statusForGenerateError(err), err.Error())
		return
	}

	resp := GenerateResponse{
		Success:    true,
		Prompt:     prompt,
		Image:      base64.StdEncoding.EncodeToString(result.ImageData),
		Format:     "png",
		Width:      result.Width,
		Height:     result.Height,
		Seed:       result.Seed,
		DurationMS: duration.Milliseconds(),
		Backend:    h.backend.Name(),
	}

	params.Seed = result.Seed
	h.finishGeneration(id, params, duration, nil)
	h.logger.Info("generation completed",
		zap.String("id", id),
		zap.String("backend", h.backend.Name()),
		zap.Int("width", result.Width),
		zap.Int("height", result.Height),
		zap.Int64("seed", result.Seed),
		zap.Duration("duration", duration))

	// The generation itself succeeded and is recorded as such; a failure
	// here is a server-side encoding problem, not a client error.
	if req.Thumbnail != nil {
		thumb, terr := makeThumbnail(result.ImageData, *req.Thumbnail)
		if terr != nil {
			h.logger.Error("thumbnail failed",
				zap.String("id", id),
				zap.Error(terr))
			writeError(w, http.StatusInternalServerError, "failed to build thumbnail")
			return
		}
		resp.Thumbnail = base64.StdEncoding.EncodeToString(thumb)
	}

	writeJSON(w, http.StatusOK, resp)
}

// finishGeneration records the outcome in the stats store, the history
// database and the WebSocket stream. err nil means success.
func (h *Handlers) finishGeneration(id string, params sdruntime.GenerateParams, duration time.Duration, err error) {
	h.stats.RecordGeneration(duration, err == nil)

	if h.repo != nil {
		record := db.GenerationRecord{
			ID:             id,
			Prompt:         sdruntime.SanitizePrompt(params.Prompt),
			NegativePrompt: params.NegativePrompt,
			Width:          params.Width,
			Height:         params.Height,
			Steps:          params.Steps,
			CFGScale:       params.CFGScale,
			Seed:           params.Seed,
			Backend:        h.backend.Name(),
			DurationMS:     duration.Milliseconds(),
			Status:         db.StatusSuccess,
		}
		if err != nil {
			record.Status = db.StatusError
			record.ErrorMessage = err.Error()
		}
		if _, dbErr := h.repo.Insert(context.Background(), record); dbErr != nil {
			h.logger.Warn("record generation history", zap.Error(dbErr))
		}
	}

	if h.broadcaster != nil {
		update := GenerationUpdateData{
			ID:         id,
			Status:     GenerationStatusCompleted,
			Prompt:     sdruntime.SanitizePrompt(params.Prompt),
			Backend:    h.backend.Name(),
			DurationMS: duration.Milliseconds(),
		}
		if err != nil {
			update.Status = GenerationStatusError
			update.Error = err.Error()
		}
		h.broadcaster.BroadcastGenerationUpdate(update)
	}
}

// statusForGenerateError maps pipeline errors to HTTP status codes.
// Client mistakes get 400, capacity and model availability get 503,
// everything else is a 500.
func statusForGenerateError(err error) int {
	switch {
	case errors.Is(err, sdruntime.ErrInvalidPrompt),
		errors.Is(err, sdruntime.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, sdruntime.ErrModelNotFound),
		errors.Is(err, sdruntime.ErrModelNotSet),
		errors.Is(err, sdruntime.ErrModelLoadFailed),
		errors.Is(err, sdruntime.ErrCUDANotAvailable),
		errors.Is(err, sdruntime.ErrPipelineClosed),
		errors.Is(err, sdruntime.ErrAcquireTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, sdruntime.ErrGenerationTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// HandleHealth serves GET /api/health. It never fails; missing GPU or an
// unloaded model are reported, not errors.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "healthy",
		ModelLoaded: h.backend.Loaded(),
		Backend:     h.backend.Name(),
	}

	if h.gpu != nil && h.gpu.IsAvailable() {
		m := h.gpu.GetCurrentMetrics()
		resp.GPUAvailable = true
		resp.GPUInfo = GPUInfo{
			Name:          m.Name,
			MemoryTotalGB: m.MemoryTotalGB(),
			MemoryUsedGB:  m.MemoryUsedGB(),
			Utilization:   m.Utilization,
			Temperature:   m.Temperature,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleVersion serves GET /api/version.
func (h *Handlers) HandleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version:   core.Version,
		GitCommit: core.GitCommit,
		BuildTime: core.BuildTime,
	})
}

// HandleHistory serves GET /api/history. The limit parameter defaults to
// 20 and is clamped to 100.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "history not available")
		return
	}

	limit := db.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit: "+strconv.Quote(raw))
			return
		}
		limit = v
	}

	records, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("list history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// HandleGPU serves GET /api/gpu with current metrics and recent history.
func (h *Handlers) HandleGPU(w http.ResponseWriter, r *http.Request) {
	resp := GPUResponse{}
	if h.gpu != nil {
		resp.Available = h.gpu.IsAvailable()
		resp.Current = h.gpu.GetCurrentMetrics()

		limit := 60
		if raw := r.URL.Query().Get("limit"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid limit: "+strconv.Quote(raw))
				return
			}
			limit = v
		}
		resp.History = h.gpu.GetHistory(limit)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleStats serves GET /api/stats with generation counters.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{Generation: h.stats.Snapshot()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
