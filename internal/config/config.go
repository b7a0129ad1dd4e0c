// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/solvault/internal/cloud"
	"github.com/jeranaias/solvault/internal/ollama"
	"github.com/jeranaias/solvault/internal/util"
)

// Provider names accepted in configuration.
const (
	ProviderOllama = "ollama"
	ProviderCloud  = "cloud"
)

// =============================================================================
// CONFIGURATION TYPES
// =============================================================================

// Config is the complete application configuration.
type Config struct {
	// Provider selects which backend handles chat by default.
	Provider ProviderConfig `toml:"provider" json:"provider"`

	// Local configures the Ollama backend.
	Local LocalConfig `toml:"local" json:"local"`

	// Cloud configures the OpenAI-compatible backend.
	Cloud CloudConfig `toml:"cloud" json:"cloud"`

	// Chat holds generation parameters shared by both backends.
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Router configures solution matching.
	Router RouterConfig `toml:"router" json:"router"`

	// Extraction configures metadata extraction.
	Extraction ExtractionConfig `toml:"extraction" json:"extraction"`

	// Storage holds filesystem locations.
	Storage StorageConfig `toml:"storage" json:"storage"`
}

// ProviderConfig selects the default chat backend.
type ProviderConfig struct {
	// Default is "ollama" or "cloud".
	Default string `toml:"default" json:"default"`
}

// LocalConfig configures the Ollama backend.
type LocalConfig struct {
	OllamaURL string `toml:"ollama_url" json:"ollama_url"`
	Model     string `toml:"model" json:"model"`

	// VisionModel handles calls carrying image parts. Empty disables the
	// local vision path; image calls then route to the cloud backend.
	VisionModel string `toml:"vision_model" json:"vision_model"`
}

// CloudConfig configures the OpenAI-compatible backend.
type CloudConfig struct {
	APIKey  string `toml:"api_key" json:"api_key"`
	BaseURL string `toml:"base_url" json:"base_url"`
	Model   string `toml:"model" json:"model"`
}

// ChatConfig holds generation parameters.
type ChatConfig struct {
	Temperature float64 `toml:"temperature" json:"temperature"`
}

// RouterConfig configures solution matching.
type RouterConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`

	// Threshold is the minimum confidence for an automatic match, in [0,1].
	Threshold float64 `toml:"threshold" json:"threshold"`

	// Provider and Model override the default backend for match calls.
	// Empty means use the default chat backend.
	Provider string `toml:"provider" json:"provider"`
	Model    string `toml:"model" json:"model"`
}

// ExtractionConfig configures metadata extraction.
type ExtractionConfig struct {
	Provider string `toml:"provider" json:"provider"`
	Model    string `toml:"model" json:"model"`
}

// StorageConfig holds filesystem locations.
type StorageConfig struct {
	// ConversationsDir holds per-conversation message files.
	ConversationsDir string `toml:"conversations_dir" json:"conversations_dir"`

	// SolutionsPath is the solution vault database file.
	SolutionsPath string `toml:"solutions_path" json:"solutions_path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.fillDefaults()
	return cfg
}

// fillDefaults populates unset fields.
func (c *Config) fillDefaults() {
	if c.Provider.Default == "" {
		c.Provider.Default = ProviderOllama
	}
	if c.Local.OllamaURL == "" {
		c.Local.OllamaURL = ollama.DefaultBaseURL
	}
	if c.Local.Model == "" {
		c.Local.Model = "llama3.2"
	}
	if c.Cloud.BaseURL == "" {
		c.Cloud.BaseURL = cloud.DefaultBaseURL
	}
	if c.Cloud.Model == "" {
		c.Cloud.Model = "gpt-4o-mini"
	}
	if c.Chat.Temperature == 0 {
		c.Chat.Temperature = 0.7
	}
	if c.Router.Threshold == 0 {
		c.Router.Threshold = 0.75
	}
	if c.Extraction.Provider == "" {
		c.Extraction.Provider = c.Provider.Default
	}
	if c.Storage.ConversationsDir == "" || c.Storage.SolutionsPath == "" {
		if dir, err := Dir(); err == nil {
			if c.Storage.ConversationsDir == "" {
				c.Storage.ConversationsDir = filepath.Join(dir, "conversations")
			}
			if c.Storage.SolutionsPath == "" {
				c.Storage.SolutionsPath = filepath.Join(dir, "solutions.db")
			}
		}
	}
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the configuration directory (~/.solvault).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".solvault"), nil
}

// PathTOML returns the TOML config file path.
func PathTOML() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// PathJSON returns the JSON config file path, supported as a fallback.
func PathJSON() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configuration from the default locations, TOML preferred over
// JSON, fills defaults, and applies environment overrides. A missing config
// file is not an error; defaults are used.
func Load() (*Config, error) {
	cfg := &Config{}

	if path, err := PathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := loadTOML(cfg, path); err != nil {
				return nil, err
			}
			return finishLoad(cfg)
		}
	}

	if path, err := PathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := loadJSON(cfg, path); err != nil {
				return nil, err
			}
		}
	}

	return finishLoad(cfg)
}

// LoadFromPath reads configuration from an explicit file, dispatching on
// extension.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

	var err error
	if strings.HasSuffix(path, ".json") {
		err = loadJSON(cfg, path)
	} else {
		err = loadTOML(cfg, path)
	}
	if err != nil {
		return nil, err
	}

	return finishLoad(cfg)
}

func finishLoad(cfg *Config) (*Config, error) {
	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func loadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the TOML path atomically.
func Save(cfg *Config) error {
	path, err := PathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration as TOML to an explicit path.
func SaveTOML(cfg *Config, path string) error {
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	// 0600: the file may hold an API key.
	return util.AtomicWriteFile(path, []byte(buf.String()), 0600)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies SOLVAULT_* environment variables over the loaded
// values. Environment always wins over file contents.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SOLVAULT_PROVIDER"); v != "" {
		c.Provider.Default = v
	}
	if v := os.Getenv("SOLVAULT_MODEL"); v != "" {
		c.Local.Model = v
	}
	if v := os.Getenv("SOLVAULT_OLLAMA_URL"); v != "" {
		c.Local.OllamaURL = v
	}
	if v := os.Getenv("SOLVAULT_VISION_MODEL"); v != "" {
		c.Local.VisionModel = v
	}
	if v := os.Getenv("SOLVAULT_API_KEY"); v != "" {
		c.Cloud.APIKey = v
	}
	if v := os.Getenv("SOLVAULT_CLOUD_URL"); v != "" {
		c.Cloud.BaseURL = v
	}
	if v := os.Getenv("SOLVAULT_CLOUD_MODEL"); v != "" {
		c.Cloud.Model = v
	}
	if v := os.Getenv("SOLVAULT_ROUTER_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Router.Enabled = enabled
		}
	}
	if v := os.Getenv("SOLVAULT_ROUTER_THRESHOLD"); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			c.Router.Threshold = threshold
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	switch c.Provider.Default {
	case ProviderOllama, ProviderCloud:
	default:
		return fmt.Errorf("provider.default: unknown provider %q", c.Provider.Default)
	}

	if c.Router.Threshold < 0 || c.Router.Threshold > 1 {
		return fmt.Errorf("router.threshold: %v is outside [0,1]", c.Router.Threshold)
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		return fmt.Errorf("chat.temperature: %v is outside [0,2]", c.Chat.Temperature)
	}

	if c.Router.Provider != "" && c.Router.Provider != ProviderOllama && c.Router.Provider != ProviderCloud {
		return fmt.Errorf("router.provider: unknown provider %q", c.Router.Provider)
	}
	if c.Extraction.Provider != "" && c.Extraction.Provider != ProviderOllama && c.Extraction.Provider != ProviderCloud {
		return fmt.Errorf("extraction.provider: unknown provider %q", c.Extraction.Provider)
	}

	return nil
}
