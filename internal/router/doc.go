// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router matches new user queries against previously saved
// solutions using a single non-streaming LLM call.
//
// The model receives the full candidate pool and answers with strict JSON
// naming its best match and a confidence score. Acceptance is thresholded:
// a sub-threshold match is rejected for automatic reuse but returned with
// its raw confidence so a human can override the decision.
package router
