// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations and committed solutions.
//
// Conversations are one JSON file each, written atomically so a crash never
// leaves a partial file. The solution vault is a SQLite database; committing
// a candidate there is the explicit human save step, after which it joins
// the pool the router matches new queries against.
package storage
