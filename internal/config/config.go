package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the healthrec API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Index    IndexConfig    `yaml:"index"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Rerank   RerankConfig   `yaml:"rerank"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds vector index connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// OpenAIConfig holds the embedding and chat collaborator settings.
type OpenAIConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`
	ChatModel           string `yaml:"chat_model"`
	MaxTokens           int    `yaml:"max_tokens"`
	TimeoutSec          int    `yaml:"timeout_sec"`
}

// IndexConfig holds vector index naming settings.
type IndexConfig struct {
	Collection string `yaml:"collection"`
	KeyPrefix  string `yaml:"key_prefix"`
}

// PipelineConfig holds retrieval and ranking settings.
type PipelineConfig struct {
	TopK            int     `yaml:"top_k"`
	RelevancyWeight float64 `yaml:"relevancy_weight"`
	MaxContextWords int     `yaml:"max_context_words"`
	DedupStrategy   string  `yaml:"dedup_strategy"`  // first, last, most_recent, best_score
	DedupPrecision  int     `yaml:"dedup_precision"` // coordinate decimals for the identity key
}

// RerankConfig holds listwise reranking settings.
type RerankConfig struct {
	RetrievalK      int `yaml:"retrieval_k"`
	OutputK         int `yaml:"output_k"`
	MaxContentWords int `yaml:"max_content_words"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Generation calls can take tens of seconds end-to-end.
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if c.OpenAI.MaxTokens <= 0 {
		c.OpenAI.MaxTokens = 500
	}
	if c.OpenAI.TimeoutSec <= 0 {
		c.OpenAI.TimeoutSec = 30
	}
	if c.Index.Collection == "" {
		c.Index.Collection = "services"
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "healthrec:"
	}
	if c.Pipeline.TopK <= 0 {
		c.Pipeline.TopK = 5
	}
	if c.Pipeline.RelevancyWeight == 0 {
		c.Pipeline.RelevancyWeight = 0.5
	}
	if c.Pipeline.MaxContextWords <= 0 {
		c.Pipeline.MaxContextWords = 300
	}
	if c.Pipeline.DedupStrategy == "" {
		c.Pipeline.DedupStrategy = "first"
	}
	if c.Pipeline.DedupPrecision <= 0 {
		c.Pipeline.DedupPrecision = 6
	}
	if c.Rerank.RetrievalK <= 0 {
		c.Rerank.RetrievalK = 20
	}
	if c.Rerank.OutputK <= 0 {
		c.Rerank.OutputK = 5
	}
	if c.Rerank.MaxContentWords <= 0 {
		c.Rerank.MaxContentWords = 150
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Pipeline.RelevancyWeight < 0 || c.Pipeline.RelevancyWeight > 1 {
		return fmt.Errorf("pipeline.relevancy_weight must be in [0,1], got %g", c.Pipeline.RelevancyWeight)
	}
	switch c.Pipeline.DedupStrategy {
	case "first", "last", "most_recent", "best_score":
		// ok
	default:
		return fmt.Errorf(
			"pipeline.dedup_strategy must be one of first, last, most_recent, best_score, got %q",
			c.Pipeline.DedupStrategy,
		)
	}
	if c.Rerank.OutputK < 1 || c.Rerank.OutputK > c.Rerank.RetrievalK {
		return fmt.Errorf(
			"rerank.output_k must satisfy 1 <= output_k <= retrieval_k, got output_k=%d retrieval_k=%d",
			c.Rerank.OutputK, c.Rerank.RetrievalK,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
