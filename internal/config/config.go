package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration for claimlens.
//
// Hierarchy (highest to lowest priority): CLI flags, CLAIMLENS_* environment
// variables, config file (~/.claimlens/config.yaml), defaults.
type Config struct {
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	VectorDB    VectorDBConfig    `yaml:"vectordb" mapstructure:"vectordb"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" mapstructure:"retrieval"`
	Extraction  ExtractionConfig  `yaml:"extraction" mapstructure:"extraction"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig selects the logger encoder.
type LogConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode"` // "dev" or "prod"
}

// LLMConfig configures the structured-extraction / decision model backend.
type LLMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // "openai" (or any OpenAI-compatible endpoint via base_url)
	Model    string `yaml:"model" mapstructure:"model"`
	// VisionModel overrides Model for image calls; empty means use Model.
	VisionModel string `yaml:"vision_model" mapstructure:"vision_model"`
	EmbedModel  string `yaml:"embed_model" mapstructure:"embed_model"`
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens   int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	// RequestsPerSecond rate-limits calls to the backend; 0 disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// StoreConfig configures the artifact store client.
type StoreConfig struct {
	// BaseURL is an afs location such as s3://claims-uploads, gs://claims-uploads
	// or file:///var/claims. User folders live under {BaseURL}/users/{userId}/.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// VectorDBConfig configures the policy vector index client.
type VectorDBConfig struct {
	URL        string        `yaml:"url" mapstructure:"url"`
	APIKey     string        `yaml:"api_key" mapstructure:"api_key"`
	Collection string        `yaml:"collection" mapstructure:"collection"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	HTTPProxy  string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy" mapstructure:"https_proxy"`
}

// RetrievalConfig configures policy search behavior.
type RetrievalConfig struct {
	// SourceTag is the tenant scope tag policy chunks are filtered by.
	SourceTag string `yaml:"source_tag" mapstructure:"source_tag"`
	// DefaultLimit is the result count used when the agent does not ask for one.
	DefaultLimit int `yaml:"default_limit" mapstructure:"default_limit"`
	// CacheTTL caches query results; 0 disables the cache.
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// ExtractionConfig bounds what is sent to the model.
type ExtractionConfig struct {
	// DocumentTextBudget caps raw document text before any model call.
	// The cap is a truncation, not a summarization.
	DocumentTextBudget int `yaml:"document_text_budget" mapstructure:"document_text_budget"`
}

// ConcurrencyConfig bounds parallel work.
type ConcurrencyConfig struct {
	// BatchWorkers is the number of claim jobs processed concurrently.
	BatchWorkers int `yaml:"batch_workers" mapstructure:"batch_workers"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Mode: "dev"},
		LLM: LLMConfig{
			Provider:          "openai",
			Model:             "gpt-4o",
			EmbedModel:        "text-embedding-3-small",
			Timeout:           90 * time.Second,
			MaxTokens:         1500,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Store: StoreConfig{
			BaseURL: "s3://claimlens-uploads",
		},
		VectorDB: VectorDBConfig{
			URL:        "http://localhost:6333",
			Collection: "policy_chunks",
			Timeout:    10 * time.Second,
		},
		Retrieval: RetrievalConfig{
			SourceTag:    "insurance_claim_policy",
			DefaultLimit: 5,
			CacheTTL:     5 * time.Minute,
		},
		Extraction: ExtractionConfig{
			DocumentTextBudget: 15000,
		},
		Concurrency: ConcurrencyConfig{
			BatchWorkers: 4,
		},
	}
}

// Load merges viper state (config file plus CLAIMLENS_* env) over the defaults
// and resolves API keys from the conventional environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.VectorDB.APIKey == "" {
		cfg.VectorDB.APIKey = os.Getenv("QDRANT_API_KEY")
	}

	return cfg, nil
}
