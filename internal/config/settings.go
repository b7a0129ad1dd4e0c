// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"sync"

	"github.com/jeranaias/solvault/internal/provider"
)

// =============================================================================
// SETTINGS ACCESSOR
// =============================================================================

// Settings is the live configuration handle shared across the application.
// Readers get a consistent snapshot; the config watcher swaps in reloaded
// configurations without interrupting in-flight work.
//
// Settings is thread-safe for concurrent use.
type Settings struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewSettings wraps a loaded configuration.
func NewSettings(cfg *Config) *Settings {
	return &Settings{cfg: cfg}
}

// Current returns a snapshot copy of the configuration.
func (s *Settings) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.cfg
}

// Replace swaps in a new configuration. Calls in flight keep the snapshot
// they started with.
func (s *Settings) Replace(cfg *Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// =============================================================================
// OPTION RESOLUTION
// =============================================================================

// OptionsFor builds provider options for the named backend, optionally
// overriding the configured model.
func (s *Settings) OptionsFor(providerName, modelOverride string) provider.Options {
	cfg := s.Current()

	var opts provider.Options
	switch providerName {
	case ProviderCloud:
		opts = provider.Options{
			Model:       cfg.Cloud.Model,
			BaseURL:     cfg.Cloud.BaseURL,
			Temperature: cfg.Chat.Temperature,
			APIKey:      cfg.Cloud.APIKey,
		}
	default:
		opts = provider.Options{
			Model:       cfg.Local.Model,
			BaseURL:     cfg.Local.OllamaURL,
			Temperature: cfg.Chat.Temperature,
			VisionModel: cfg.Local.VisionModel,
		}
	}

	if modelOverride != "" {
		opts.Model = modelOverride
	}
	return opts
}

// ChatProvider resolves the backend name and options for a chat call. When
// vision is true the call carries image parts: a configured local vision
// model keeps it local with the model substituted, otherwise the call is
// forced to the cloud backend for that call only.
func (s *Settings) ChatProvider(vision bool) (string, provider.Options) {
	cfg := s.Current()
	name := cfg.Provider.Default

	if vision {
		if name == ProviderOllama && cfg.Local.VisionModel != "" {
			opts := s.OptionsFor(ProviderOllama, cfg.Local.VisionModel)
			return ProviderOllama, opts
		}
		return ProviderCloud, s.OptionsFor(ProviderCloud, "")
	}

	return name, s.OptionsFor(name, "")
}

// RouterProvider resolves the backend name and options for match calls,
// falling back to the default chat backend when no override is configured.
func (s *Settings) RouterProvider() (string, provider.Options) {
	cfg := s.Current()
	name := cfg.Router.Provider
	if name == "" {
		name = cfg.Provider.Default
	}
	return name, s.OptionsFor(name, cfg.Router.Model)
}

// ExtractionProvider resolves the backend name and options for extraction
// calls.
func (s *Settings) ExtractionProvider() (string, provider.Options) {
	cfg := s.Current()
	name := cfg.Extraction.Provider
	if name == "" {
		name = cfg.Provider.Default
	}
	return name, s.OptionsFor(name, cfg.Extraction.Model)
}
