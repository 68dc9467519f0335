// Package config implements the ambient configuration layer: a
// yaml.v3-backed load-merge-validate-save pipeline rooted at
// <dataRoot>/config.yaml, with environment overrides and an
// atomic-write-on-save pattern matching the rest of this codebase's
// persisted files (snapshots, the project registry).
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eidetic-labs/eideticmcp/internal/errors"
)

// Config is the full set of user-controllable settings for the engine
// and its CLI/RPC surfaces.
type Config struct {
	DataDir  string `yaml:"dataDir"`
	LogLevel string `yaml:"logLevel"`

	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Indexing  IndexingConfig  `yaml:"indexing"`
}

// EmbeddingConfig describes the embedding provider: an HTTP service
// taking a batch of texts and returning one fixed-dimension vector per
// input.
type EmbeddingConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey,omitempty"`
}

// StoreConfig describes the vector-store backend.
type StoreConfig struct {
	BaseURL string `yaml:"baseUrl"`
	APIKey  string `yaml:"apiKey,omitempty"`
}

// IndexingConfig tunes the indexer pipeline.
type IndexingConfig struct {
	Concurrency          int      `yaml:"concurrency"`
	EmbeddingBatchSize   int      `yaml:"embeddingBatchSize"`
	CustomExtensions     []string `yaml:"customExtensions,omitempty"`
	CustomIgnorePatterns []string `yaml:"customIgnorePatterns,omitempty"`
}

// Default returns the configuration used when no config.yaml exists yet.
func Default() Config {
	return Config{
		DataDir:  DefaultDataDir(),
		LogLevel: "info",
		Embedding: EmbeddingConfig{
			BaseURL: "http://localhost:8081",
			Model:   "text-embedding-3-small",
		},
		Store: StoreConfig{
			BaseURL: "http://localhost:6334",
		},
		Indexing: IndexingConfig{
			Concurrency:        8,
			EmbeddingBatchSize: 100,
		},
	}
}

// DefaultDataDir returns `~/.eideticmcp`, the default dataRoot housing
// snapshots/, cache/embeddings/, and registry.json.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".eideticmcp"
	}
	return filepath.Join(home, ".eideticmcp")
}

// Path returns the config file path under dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// Load reads config.yaml under dataDir, merges it onto Default(), applies
// environment overrides, and validates the result. A missing file is not
// an error: defaults (plus env overrides) are returned.
func Load(dataDir string) (Config, error) {
	cfg := Default()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	data, err := os.ReadFile(Path(cfg.DataDir))
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, errors.IOError("failed to read config", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.ConfigError("failed to parse config.yaml", err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides layers EIDETICMCP_* environment variables onto cfg,
// the same override surface a deployed process configures without
// touching the on-disk file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EIDETICMCP_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("EIDETICMCP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("EIDETICMCP_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("EIDETICMCP_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("EIDETICMCP_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("EIDETICMCP_STORE_BASE_URL"); v != "" {
		cfg.Store.BaseURL = v
	}
	if v := os.Getenv("EIDETICMCP_STORE_API_KEY"); v != "" {
		cfg.Store.APIKey = v
	}
	if v := os.Getenv("EIDETICMCP_INDEXING_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Indexing.Concurrency = n
		}
	}
}

// Validate checks the settings the rest of the engine assumes hold.
// A missing embedding base URL for a non-local provider is a fatal
// configuration error: nothing downstream can run without it.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Embedding.BaseURL) == "" {
		return errors.ConfigError("embedding.baseUrl must be set", nil)
	}
	if strings.TrimSpace(c.Store.BaseURL) == "" {
		return errors.ConfigError("store.baseUrl must be set", nil)
	}
	if c.Indexing.Concurrency <= 0 {
		return errors.ConfigError("indexing.concurrency must be positive", nil)
	}
	return nil
}

// Save writes cfg to <dataDir>/config.yaml via write-to-temp-then-rename,
// the same atomic pattern snapshot.Save and registry.ProjectRegistry.save
// use.
func Save(cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.ConfigError("failed to marshal config", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return errors.IOError("failed to create data directory", err)
	}

	path := Path(cfg.DataDir)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.IOError("failed to write config temp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.IOError("failed to rename config into place", err)
	}
	return nil
}

// FindProjectRoot walks upward from start looking for a `.git` directory,
// falling back to start itself if none is found, so CLI commands run from
// a subdirectory resolve the same tree as the one registered.
func FindProjectRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	dir := abs
	for {
		if info, statErr := os.Stat(filepath.Join(dir, ".git")); statErr == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		dir = parent
	}
}
