package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PartitionerConfig configures the external PDF partitioning service and
// the thresholds of its title-anchored chunking pass.
type PartitionerConfig struct {
	BaseURL           string `yaml:"base_url"`
	Strategy          string `yaml:"strategy"`
	TimeoutSecs       int    `yaml:"timeout_secs"`
	MaxCharacters     int    `yaml:"max_characters"`
	CombineUnderChars int    `yaml:"combine_under_chars"`
	NewAfterChars     int    `yaml:"new_after_chars"`
}

// OllamaEmbedderConfig holds configuration for the Ollama embeddings client.
type OllamaEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// OpenAIEmbedderConfig holds configuration for an OpenAI-compatible
// embeddings endpoint. The API key stays in the environment.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	Ollama *OllamaEmbedderConfig `yaml:"ollama,omitempty"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// OpenSearchConfig contains connection details for an OpenSearch index store.
type OpenSearchConfig struct {
	Addresses   []string `yaml:"addresses"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	TimeoutSecs int      `yaml:"timeout_secs"`
	MaxRetries  int      `yaml:"max_retries"`
}

// IndexConfig selects and configures the index store implementation.
// Dimension is the fixed embedding dimension of every created collection.
type IndexConfig struct {
	Type       string            `yaml:"type"`
	Dimension  int               `yaml:"dimension"`
	OpenSearch *OpenSearchConfig `yaml:"opensearch,omitempty"`
}

// GeminiConfig configures the Gemini description/generation client. The API
// key itself stays in the environment; config carries the variable name.
type GeminiConfig struct {
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// DescriberConfig selects and configures the image/table description model.
// Type "none" disables descriptions; image chunks then fall back to their
// extracted text and table chunks to their plain-text rendering.
type DescriberConfig struct {
	Type   string        `yaml:"type"`
	Gemini *GeminiConfig `yaml:"gemini,omitempty"`
}

// GeneratorConfig configures answer generation models.
type GeneratorConfig struct {
	GeminiModel string `yaml:"gemini_model"`
	OllamaModel string `yaml:"ollama_model"`
	OllamaURL   string `yaml:"ollama_url"`
	ContextTopK int    `yaml:"context_top_k"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Partitioner PartitionerConfig `yaml:"partitioner"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Index       IndexConfig       `yaml:"index"`
	Describer   DescriberConfig   `yaml:"describer"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/pdfqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/pdfqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pdfqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Partitioner.BaseURL == "" {
		cfg.Partitioner.BaseURL = "http://localhost:8000"
	}
	if cfg.Partitioner.Strategy == "" {
		cfg.Partitioner.Strategy = "fast"
	}
	if cfg.Partitioner.TimeoutSecs == 0 {
		cfg.Partitioner.TimeoutSecs = 120
	}
	if cfg.Partitioner.MaxCharacters == 0 {
		cfg.Partitioner.MaxCharacters = 2000
	}
	if cfg.Partitioner.CombineUnderChars == 0 {
		cfg.Partitioner.CombineUnderChars = 500
	}
	if cfg.Partitioner.NewAfterChars == 0 {
		cfg.Partitioner.NewAfterChars = 1500
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "ollama"
	}
	if cfg.Embedder.Type == "ollama" {
		if cfg.Embedder.Ollama == nil {
			cfg.Embedder.Ollama = &OllamaEmbedderConfig{}
		}
		if cfg.Embedder.Ollama.BaseURL == "" {
			cfg.Embedder.Ollama.BaseURL = "http://localhost:11434"
		}
		if cfg.Embedder.Ollama.Model == "" {
			cfg.Embedder.Ollama.Model = "nomic-embed-text"
		}
		if cfg.Embedder.Ollama.TimeoutSecs == 0 {
			cfg.Embedder.Ollama.TimeoutSecs = 30
		}
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}

	if cfg.Index.Type == "" {
		cfg.Index.Type = "opensearch"
	}
	if cfg.Index.Dimension == 0 {
		cfg.Index.Dimension = 768
	}
	if cfg.Index.Type == "opensearch" {
		if cfg.Index.OpenSearch == nil {
			cfg.Index.OpenSearch = &OpenSearchConfig{}
		}
		if len(cfg.Index.OpenSearch.Addresses) == 0 {
			cfg.Index.OpenSearch.Addresses = []string{"http://localhost:9200"}
		}
		if cfg.Index.OpenSearch.TimeoutSecs == 0 {
			cfg.Index.OpenSearch.TimeoutSecs = 30
		}
		if cfg.Index.OpenSearch.MaxRetries == 0 {
			cfg.Index.OpenSearch.MaxRetries = 3
		}
	}

	if cfg.Describer.Type == "" {
		cfg.Describer.Type = "gemini"
	}
	if cfg.Describer.Type == "gemini" {
		if cfg.Describer.Gemini == nil {
			cfg.Describer.Gemini = &GeminiConfig{}
		}
		if cfg.Describer.Gemini.APIKeyEnv == "" {
			cfg.Describer.Gemini.APIKeyEnv = "GEMINI_API_KEY"
		}
		if cfg.Describer.Gemini.Model == "" {
			cfg.Describer.Gemini.Model = "gemini-2.5-flash"
		}
		if cfg.Describer.Gemini.TimeoutSecs == 0 {
			cfg.Describer.Gemini.TimeoutSecs = 60
		}
	}

	if cfg.Generator.GeminiModel == "" {
		cfg.Generator.GeminiModel = "gemini-2.5-flash"
	}
	if cfg.Generator.OllamaModel == "" {
		cfg.Generator.OllamaModel = "deepseek-r1:1.5b"
	}
	if cfg.Generator.OllamaURL == "" {
		cfg.Generator.OllamaURL = "http://localhost:11434"
	}
	if cfg.Generator.ContextTopK == 0 {
		cfg.Generator.ContextTopK = 5
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = 300
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
