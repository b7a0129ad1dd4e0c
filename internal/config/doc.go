// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config manages solvault configuration.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// SOLVAULT_* environment overrides, and live reload on file change.
//
// Resolution order:
//
//   - ~/.solvault/config.toml
//   - ~/.solvault/config.json
//   - built-in defaults
//
// Environment variables win over file contents. The Settings type is the
// shared live handle: readers take consistent snapshots while the Watcher
// swaps in reloaded configurations.
package config
