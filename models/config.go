// Package models defines the shared data structures and configuration for
// the ingestion pipeline.
package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ToolSeed configures one tool's crawl seeds in the config file.
type ToolSeed struct {
	ID    string   `yaml:"id"`
	Name  string   `yaml:"name"`
	Seeds []string `yaml:"seeds"`
}

// EmbeddingConfig configures the embedding providers.
type EmbeddingConfig struct {
	OpenAIModel   string `yaml:"openai_model"`
	OllamaBaseURL string `yaml:"ollama_base_url"`
	OllamaModel   string `yaml:"ollama_model"`
	BatchSize     int    `yaml:"batch_size"`
}

// DetectorConfig configures format detection.
type DetectorConfig struct {
	ConfidenceFloor    int    `yaml:"confidence_floor"`
	ClassifierFallback bool   `yaml:"classifier_fallback"`
	ClassifierModel    string `yaml:"classifier_model"`
}

// Config is the top-level YAML configuration. CLI flags override it.
type Config struct {
	DatabasePath string          `yaml:"database_path"`
	Crawler      CrawlConfig     `yaml:"crawler"`
	Embedding    EmbeddingConfig `yaml:"embedding"`
	Detector     DetectorConfig  `yaml:"detector"`
	Tools        []ToolSeed      `yaml:"tools"`
}

// LoadConfig reads and parses a YAML config file, applying defaults for
// anything unset.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{Crawler: DefaultCrawlConfig()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// DefaultConfig returns a config with every default applied, for runs
// without a config file.
func DefaultConfig() *Config {
	cfg := &Config{Crawler: DefaultCrawlConfig()}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.DatabasePath == "" {
		c.DatabasePath = "promptforge.db"
	}
	if c.Embedding.OpenAIModel == "" {
		c.Embedding.OpenAIModel = "text-embedding-3-small"
	}
	if c.Embedding.OllamaBaseURL == "" {
		c.Embedding.OllamaBaseURL = "http://localhost:11434"
	}
	if c.Embedding.OllamaModel == "" {
		c.Embedding.OllamaModel = "nomic-embed-text"
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 32
	}
	if c.Detector.ConfidenceFloor <= 0 {
		c.Detector.ConfidenceFloor = 40
	}
	if c.Detector.ClassifierModel == "" {
		c.Detector.ClassifierModel = "claude-3-5-haiku-latest"
	}
}
