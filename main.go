// sdgateway is an HTTP gateway for text-to-image generation. It serves a
// local Stable Diffusion model when one is configured and falls back to
// OpenAI or Azure OpenAI image APIs otherwise.
package main

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"sdgateway/core"
	"sdgateway/db"
	"sdgateway/imagegen"
	"sdgateway/logging"
	"sdgateway/metrics"
	"sdgateway/sdruntime"
	"sdgateway/server"
	"sdgateway/shutdown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env if present. The logger is not up yet, so plain fmt.
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	// Service management commands (install/uninstall/start/stop).
	if HandleServiceCommand(os.Args) {
		return core.ExitCodeSuccess
	}
	if ranAsService, err := RunAsService(); err != nil {
		fmt.Fprintf(os.Stderr, "Service error: %v\n", err)
		return core.ExitCodeError
	} else if ranAsService {
		return core.ExitCodeSuccess
	}

	return runGateway(context.Background())
}

// runGateway runs the gateway until parent is cancelled or a shutdown
// signal arrives. The service wrapper calls this with its own context.
func runGateway(parent context.Context) int {
	isDevelopment := core.ParseBoolEnv("DEV_MODE", false)
	logFile := core.GetEnvOrDefault("LOG_FILE", "sdgateway.log")

	logger, err := logging.NewLogger(isDevelopment, logFile)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	defer logger.Sync()

	logger.Info("sdgateway starting",
		zap.String("version", core.Version),
		zap.String("commit", core.GitCommit),
		zap.Bool("dev_mode", isDevelopment))

	cfg, err := core.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", zap.Error(err))
		return core.ExitCodeError
	}

	check := core.NewStartupCheck(cfg).WithShowProgress(true)
	if result := check.Run(); !result.Success {
		for _, step := range result.Steps {
			if step.Status == core.StepFailed {
				logger.Error("startup check failed",
					zap.String("step", step.Name),
					zap.String("message", step.Message),
					zap.Error(step.Error))
			}
		}
		return core.ExitCodeError
	}

	presets, err := core.LoadPresets(cfg.PresetsPath)
	if err != nil {
		logger.Error("failed to load presets", zap.Error(err))
		return core.ExitCodeError
	}

	logger.Info("configuration loaded",
		zap.String("addr", cfg.Addr()),
		zap.Bool("local_model", cfg.HasLocalModel()),
		zap.Bool("cloud_fallback", cfg.HasCloudFallback()),
		zap.Int("image_size", cfg.SDImageSize),
		zap.Int("inference_steps", cfg.SDInferenceSteps),
		zap.Float64("guidance_scale", cfg.SDGuidanceScale),
		zap.Duration("generation_timeout", cfg.SDTimeout),
		zap.Strings("presets", presets.Names()))

	manager := shutdown.NewManager(logger.Zap(), shutdown.WithTimeout(cfg.ShutdownTimeout))
	go func() {
		<-parent.Done()
		manager.Trigger()
	}()
	manager.Register("flush-logs", 5, func(ctx context.Context) error {
		logger.Sync()
		return nil
	})

	// Generation history database.
	var repo *db.Repository
	if cfg.HistoryDBPath != "" {
		database, err := db.NewSQLiteConnectionWithDefaults(cfg.HistoryDBPath)
		if err != nil {
			logger.Error("failed to open history database", zap.Error(err))
			return core.ExitCodeError
		}
		if err := db.RunMigrations(database); err != nil {
			logger.Error("failed to run migrations", zap.Error(err))
			database.Close()
			return core.ExitCodeError
		}
		repo = db.NewRepository(database)
		manager.Register("history-db", 35, func(ctx context.Context) error {
			return database.Close()
		})
		logger.Info("generation history enabled", zap.String("path", cfg.HistoryDBPath))
	}

	// GPU metrics collection.
	gpuCollector := metrics.NewGPUCollector(metrics.GPUCollectorConfig{
		CollectionInterval: cfg.GPUPollInterval,
		HistorySize:        720,
		NvidiaSMIPath:      cfg.NvidiaSMIPath,
	})
	gpuCollector.Start()
	manager.Register("gpu-collector", 20, func(ctx context.Context) error {
		gpuCollector.Stop()
		return nil
	})

	// Select the generation backend: local model wins, cloud is fallback.
	backend, err := buildBackend(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize backend", zap.Error(err))
		return core.ExitCodeError
	}
	manager.Register("backend", 30, func(ctx context.Context) error {
		return backend.Close()
	})
	logger.Info("generation backend ready", zap.String("backend", backend.Name()))

	statsStore := metrics.NewStore()

	serverCfg := server.DefaultServerConfig()
	serverCfg.Host = cfg.Host
	serverCfg.Port = cfg.Port
	serverCfg.ShutdownTimeout = cfg.ShutdownTimeout

	srv, err := server.NewServer(serverCfg, cfg, presets, backend, gpuCollector, statsStore, repo, logger.Zap())
	if err != nil {
		logger.Error("failed to create server", zap.Error(err))
		return core.ExitCodeError
	}
	manager.Register("http-server", 10, func(ctx context.Context) error {
		return srv.Shutdown(ctx)
	})

	// Push GPU samples to WebSocket clients at the poll interval.
	go broadcastGPUUpdates(manager.Context(), srv.Broadcaster(), gpuCollector, cfg.GPUPollInterval)

	go func() {
		if err := srv.Start(manager.Context()); err != nil {
			logger.Error("server failed", zap.Error(err))
			manager.Trigger()
		}
	}()

	manager.Start()
	manager.Wait()

	if err := manager.Shutdown(); err != nil {
		logger.Error("shutdown finished with errors", zap.Error(err))
		return core.ExitCodeError
	}

	// Exit code follows the signal that stopped us, 128 + signum.
	switch manager.Signal() {
	case syscall.SIGINT, os.Interrupt:
		return core.ExitCodeSIGINT
	case syscall.SIGTERM:
		return core.ExitCodeSIGTERM
	default:
		return core.ExitCodeSuccess
	}
}

// closableBackend is satisfied by both backends; Close releases the model
// context or provider resources.
type closableBackend interface {
	server.Backend
	Close() error
}

// buildBackend creates the local pipeline when a model path is configured
// and the cloud backend otherwise. Startup checks already guaranteed one
// of the two is available.
func buildBackend(cfg *core.Config, logger *logging.Logger) (closableBackend, error) {
	var backend closableBackend
	if cfg.HasLocalModel() {
		backend = sdruntime.NewPipeline(sdruntime.PipelineConfig{
			ModelPath:             cfg.SDModelPath,
			DefaultNegativePrompt: cfg.SDNegativePrompt,
		})
		logger.Info("using local model, loaded lazily on first request",
			zap.String("model_path", cfg.SDModelPath))
	} else {
		cloud, err := imagegen.NewCloudBackend(cfg)
		if err != nil {
			return nil, err
		}
		backend = cloud
	}
	return backend, nil
}

// broadcastGPUUpdates pushes GPU samples to connected WebSocket clients
// until the context is cancelled.
func broadcastGPUUpdates(ctx context.Context, b *server.Broadcaster, collector *metrics.GPUCollector, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if collector.IsAvailable() && b.ClientCount() > 0 {
				b.BroadcastMessage(server.NewGPUUpdateMessage(collector.GetCurrentMetrics()))
			}
		}
	}
}
