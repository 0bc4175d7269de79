package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobarin/placeguide/internal/api"
	"github.com/bobarin/placeguide/internal/config"
	"github.com/bobarin/placeguide/internal/db"
	"github.com/bobarin/placeguide/internal/guide"
	"github.com/bobarin/placeguide/internal/logger"
	"github.com/bobarin/placeguide/internal/profiles"
	"github.com/bobarin/placeguide/internal/prompt"
	"github.com/bobarin/placeguide/internal/queue"
	"github.com/bobarin/placeguide/internal/services"
	"github.com/bobarin/placeguide/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		logger.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Infof("Starting placeguide API (variant: %s)...", cfg.Variant)

	// Profile table, read-only after this point
	table, err := profiles.Load(cfg)
	if err != nil {
		logger.Fatalf("Failed to load profile table: %v", err)
	}
	logger.Infof("Profile table loaded (%d selectors, default: %s)", len(table.Entries), table.DefaultSelector)

	generator := newTextGenerator(cfg)
	synthesizer := newSpeechSynthesizer(cfg)

	// Connect to database (optional run log)
	var (
		database *db.DB
		recorder guide.RunRecorder
		runLog   api.RunLog
	)
	if cfg.DatabaseURL != "" {
		database, err = db.New(cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = database.Migrate(migrateCtx)
		cancel()
		if err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}

		recorder = database
		runLog = database
		logger.Infof("Connected to database, run log enabled")
	} else {
		logger.Infof("No DATABASE_URL set, run log disabled")
	}

	pipeline, err := guide.New(guide.Config{
		Table: table,
		Limits: prompt.Limits{
			Simple: cfg.SimpleSourceLimit,
			Detail: cfg.DetailSourceLimit,
		},
		Generator:   generator,
		Synthesizer: synthesizer,
		Timeout:     cfg.RequestTimeout,
		Recorder:    recorder,
	})
	if err != nil {
		logger.Fatalf("Failed to build guide pipeline: %v", err)
	}

	// Connect to Redis queue (optional async jobs)
	var q *queue.Queue
	if cfg.RedisURL != "" {
		q, err = queue.New(cfg.RedisURL, cfg.JobTTL)
		if err != nil {
			logger.Fatalf("Failed to connect to queue: %v", err)
		}
		defer q.Close()
		logger.Infof("Connected to Redis queue")
	} else {
		logger.Infof("No REDIS_URL set, async guide jobs disabled")
	}

	// Create API handler
	handler := api.NewHandler(pipeline, q, runLog)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		logger.Infof("API key authentication enabled for /v1")
	} else {
		logger.Warnf("No BACKEND_API_KEY set, /v1 is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start worker if enabled
	var (
		workerCancel context.CancelFunc
		workerDone   chan struct{}
	)
	if q != nil && cfg.WorkerEnabled {
		w := worker.New(q, pipeline)

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(context.Background())
		workerDone = make(chan struct{})
		go func() {
			defer close(workerDone)
			if err := w.Start(workerCtx, cfg.MaxConcurrentJobs); err != nil {
				logger.Errorf("Worker stopped with error: %v", err)
			}
		}()
	}

	// Start server in goroutine
	go func() {
		logger.Infof("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down server...")

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	// Shutdown worker and wait for in-flight jobs
	if workerCancel != nil {
		workerCancel()
		select {
		case <-workerDone:
		case <-ctx.Done():
			logger.Warnf("Worker did not stop before the shutdown deadline")
		}
	}

	logger.Infof("Server exited")
}

// newTextGenerator picks the text generation provider.
func newTextGenerator(cfg *config.Config) services.TextGenerator {
	switch cfg.TextProvider {
	case config.TextProviderOpenAI:
		logger.Infof("Text provider: OpenAI (model: %s)", cfg.OpenAIModel)
		return services.NewOpenAIService(cfg.OpenAIKey, cfg.OpenAIModel)
	default:
		if cfg.GeminiKey == "" {
			logger.Warnf("No GOOGLE_API_KEY set, guide generation will fail until it is provided")
		}
		logger.Infof("Text provider: Gemini (model: %s)", cfg.GeminiModel)
		return services.NewGeminiService(cfg.GeminiKey, cfg.GeminiModel)
	}
}

// newSpeechSynthesizer picks the speech synthesis provider.
func newSpeechSynthesizer(cfg *config.Config) services.SpeechSynthesizer {
	switch cfg.TTSProvider {
	case config.TTSProviderElevenLabs:
		logger.Infof("TTS provider: ElevenLabs (voice: %s, model: eleven_flash_v2_5)", cfg.ElevenLabsVoiceID)
		return services.NewElevenLabsService(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
	default:
		logger.Infof("TTS provider: Edge")
		return services.NewEdgeService()
	}
}
