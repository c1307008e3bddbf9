// Package config loads and holds all server configuration.
// Settings are layered: defaults → blinder-config.yaml/json → environment variables (env vars win).
package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the full server configuration.
type Config struct {
	DatabaseURL string   `json:"databaseUrl" yaml:"databaseUrl"`
	MasterKey   string   `json:"-" yaml:"-"` // never serialized; env-only
	LogLevel    string   `json:"logLevel" yaml:"logLevel"`
	CORSOrigins []string `json:"corsOrigins" yaml:"corsOrigins"`

	DefaultProvider string `json:"defaultProvider" yaml:"defaultProvider"`
	OllamaBaseURL   string `json:"ollamaBaseUrl" yaml:"ollamaBaseUrl"`
	OllamaModel     string `json:"ollamaModel" yaml:"ollamaModel"`
	OpenAIAPIKey    string `json:"-" yaml:"-"` // never serialized; env-only
	OpenAIModel     string `json:"openaiModel" yaml:"openaiModel"`
	AnthropicAPIKey string `json:"-" yaml:"-"` // never serialized; env-only
	AnthropicModel  string `json:"anthropicModel" yaml:"anthropicModel"`

	PIIConfidenceThreshold float64 `json:"piiConfidenceThreshold" yaml:"piiConfidenceThreshold"`
	ContextWindowThreshold float64 `json:"contextWindowThreshold" yaml:"contextWindowThreshold"`
	ChunkSize              int     `json:"chunkSize" yaml:"chunkSize"`
	ChunkOverlap           int     `json:"chunkOverlap" yaml:"chunkOverlap"`
	EmbeddingDimensions    int     `json:"embeddingDimensions" yaml:"embeddingDimensions"`
	RAGTopK                int     `json:"ragTopK" yaml:"ragTopK"`
	RRFK                   int     `json:"rrfK" yaml:"rrfK"`

	BindAddress     string `json:"bindAddress" yaml:"bindAddress"`
	APIPort         int    `json:"apiPort" yaml:"apiPort"`
	ManagementPort  int    `json:"managementPort" yaml:"managementPort"`
	ManagementToken string `json:"-" yaml:"-"` // never serialized; env-only

	EmbeddingCachePath     string `json:"embeddingCachePath" yaml:"embeddingCachePath"`
	EmbeddingCacheCapacity int    `json:"embeddingCacheCapacity" yaml:"embeddingCacheCapacity"`
}

// Load returns config with defaults overridden by blinder-config.yaml,
// then blinder-config.json, then env vars.
func Load() *Config {
	cfg := defaults()
	loadYAMLFile(cfg, "blinder-config.yaml")
	loadJSONFile(cfg, "blinder-config.json")
	loadEnv(cfg)
	return cfg
}

func defaults() *Config {
	return &Config{
		DatabaseURL:            "blinder.db",
		LogLevel:               "info",
		CORSOrigins:            nil,
		DefaultProvider:        "ollama",
		OllamaBaseURL:          "http://localhost:11434",
		OllamaModel:            "llama3",
		OpenAIModel:            "gpt-4o",
		AnthropicModel:         "claude-sonnet-4-5-20250929",
		PIIConfidenceThreshold: 0.7,
		ContextWindowThreshold: 0.8,
		ChunkSize:              512,
		ChunkOverlap:           50,
		EmbeddingDimensions:    384,
		RAGTopK:                10,
		RRFK:                   60,
		BindAddress:            "0.0.0.0",
		APIPort:                8443,
		ManagementPort:         8444,
		EmbeddingCachePath:     "embedding-cache.db",
		EmbeddingCacheCapacity: 10_000,
	}
}

func loadYAMLFile(cfg *Config, path string) {
	data, err := os.ReadFile(path) //nolint:gosec // G703: path is a controlled config file path, not user input
	if err != nil {
		return // file is optional
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("[CONFIG] Warning: could not parse %s: %v", path, err)
	} else {
		log.Printf("[CONFIG] Loaded %s", path)
	}
}

func loadJSONFile(cfg *Config, path string) {
	data, err := os.ReadFile(path) //nolint:gosec // G703: path is a controlled config file path, not user input
	if err != nil {
		return // file is optional
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		log.Printf("[CONFIG] Warning: could not parse %s: %v", path, err)
	} else {
		log.Printf("[CONFIG] Loaded %s", path)
	}
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("BLINDER_MASTER_KEY"); v != "" {
		cfg.MasterKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("DEFAULT_PROVIDER"); v != "" {
		cfg.DefaultProvider = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.OllamaBaseURL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.OllamaModel = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_MODEL"); v != "" {
		cfg.AnthropicModel = v
	}
	if v := os.Getenv("PII_CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.PIIConfidenceThreshold = f
		}
	}
	if v := os.Getenv("CONTEXT_WINDOW_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ContextWindowThreshold = f
		}
	}
	if v := os.Getenv("CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChunkSize = n
		}
	}
	if v := os.Getenv("CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ChunkOverlap = n
		}
	}
	if v := os.Getenv("EMBEDDING_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EmbeddingDimensions = n
		}
	}
	if v := os.Getenv("RAG_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RAGTopK = n
		}
	}
	if v := os.Getenv("RRF_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RRFK = n
		}
	}
	if v := os.Getenv("BIND_ADDRESS"); v != "" {
		cfg.BindAddress = v
	}
	if v := os.Getenv("API_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.APIPort = n
		}
	}
	if v := os.Getenv("MANAGEMENT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ManagementPort = n
		}
	}
	if v := os.Getenv("MANAGEMENT_TOKEN"); v != "" {
		cfg.ManagementToken = v
	}
	if v := os.Getenv("EMBEDDING_CACHE_PATH"); v != "" {
		cfg.EmbeddingCachePath = v
	}
	if v := os.Getenv("EMBEDDING_CACHE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EmbeddingCacheCapacity = n
		}
	}
}
