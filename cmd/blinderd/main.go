// Command blinderd is the Blinder core API server.
//
// It exposes a REST+SSE API for creating sessions, uploading documents,
// and chatting against a configured LLM provider, with every byte that
// leaves the process toward that provider passed through the blinding
// pipeline first. A separate, process-local management API reports
// uptime, provider configuration, and request metrics.
//
// Usage:
//
//	# Direct start, Ollama as the default provider
//	DATABASE_URL=./blinder.db BLINDER_MASTER_KEY=$(openssl rand -hex 32) ./blinderd
//
//	# Custom ports
//	API_PORT=9443 MANAGEMENT_PORT=9444 ./blinderd
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nisrin888/blinder/internal/audit"
	"github.com/Nisrin888/blinder/internal/cache"
	"github.com/Nisrin888/blinder/internal/chunker"
	"github.com/Nisrin888/blinder/internal/config"
	"github.com/Nisrin888/blinder/internal/detector"
	"github.com/Nisrin888/blinder/internal/httpapi"
	"github.com/Nisrin888/blinder/internal/llm"
	"github.com/Nisrin888/blinder/internal/logger"
	"github.com/Nisrin888/blinder/internal/management"
	"github.com/Nisrin888/blinder/internal/metrics"
	"github.com/Nisrin888/blinder/internal/pipeline"
	"github.com/Nisrin888/blinder/internal/storage"
)

func main() {
	cfg := config.Load()
	log := logger.New("MAIN", cfg.LogLevel)

	printBanner(cfg)
	checkMasterKey(log, cfg.MasterKey)

	store, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("STARTUP", "open database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warnf("STARTUP", "close database: %v", err)
		}
	}()

	cacheBacking, err := cache.NewBoltStore(cfg.EmbeddingCachePath)
	if err != nil {
		log.Fatalf("STARTUP", "open embedding cache: %v", err)
	}
	embedCache := cache.NewS3FIFOCache(cacheBacking, cfg.EmbeddingCacheCapacity)
	defer func() {
		if err := embedCache.Close(); err != nil {
			log.Warnf("STARTUP", "close embedding cache: %v", err)
		}
	}()
	embedder := chunker.NewEmbedder(chunker.FallbackEmbeddingModel{}, embedCache)

	auditLogger := audit.NewLogger(store)
	pipe := pipeline.New(detector.FallbackNER{}, false)

	m := metrics.New()

	llmConfig := llm.Config{
		OllamaBaseURL:   cfg.OllamaBaseURL,
		OllamaModel:     cfg.OllamaModel,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIModel:     cfg.OpenAIModel,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
	}

	api := &httpapi.Server{
		Store:           store,
		Audit:           auditLogger,
		Pipeline:        pipe,
		Embedder:        embedder,
		Config:          llmConfig,
		Log:             log,
		Metrics:         m,
		CORSOrigins:     cfg.CORSOrigins,
		MasterKey:       cfg.MasterKey,
		ManagementToken: cfg.ManagementToken,
		DefaultProvider: cfg.DefaultProvider,
		PIIThreshold:    cfg.PIIConfidenceThreshold,
		ContextWindow:   cfg.ContextWindowThreshold,
		ChunkSize:       cfg.ChunkSize,
		ChunkOverlap:    cfg.ChunkOverlap,
		RAGTopK:         cfg.RAGTopK,
		RRFK:            cfg.RRFK,
	}

	mgmt := management.New(cfg, store, m)
	go func() {
		if err := mgmt.ListenAndServe(); err != nil {
			log.Fatalf("MANAGEMENT", "fatal: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.APIPort)
	errCh := make(chan error, 1)
	go func() {
		errCh <- api.ListenAndServe(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Infof("MAIN", "shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := api.Shutdown(ctx); err != nil {
			log.Warnf("MAIN", "shutdown error: %v", err)
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("API", "fatal: %v", err)
		}
	}
}

// checkMasterKey warns loudly when the configured master key cannot
// support encryption, per the "warn and refuse to encrypt if missing"
// requirement; every vault operation downstream then fails at key
// derivation (crypto.DeriveKey rejects an empty key) rather than silently
// storing plaintext.
func checkMasterKey(log *logger.Logger, key string) {
	if key == "" {
		log.Errorf("STARTUP", "BLINDER_MASTER_KEY is not set; the process cannot encrypt vault entries and will refuse all session operations that need the vault")
		return
	}
	if len(key) < 32 {
		log.Warnf("STARTUP", "BLINDER_MASTER_KEY is shorter than the recommended 32 hex characters")
		return
	}
	if _, err := hex.DecodeString(key); err != nil {
		log.Warnf("STARTUP", "BLINDER_MASTER_KEY does not look like hex; any string is accepted as key material, but this is likely a misconfiguration")
	}
}

func printBanner(cfg *config.Config) {
	fmt.Printf(`
╔══════════════════════════════════════════════════════╗
║                  Blinder Core  (Go)                   ║
╚══════════════════════════════════════════════════════╝
  API port         : %d
  Management port  : %d
  Default provider : %s
  Ollama endpoint   : %s
  Database          : %s

  Check status:
    curl http://localhost:%d/status
`, cfg.APIPort, cfg.ManagementPort, cfg.DefaultProvider, cfg.OllamaBaseURL, cfg.DatabaseURL, cfg.ManagementPort)
}
