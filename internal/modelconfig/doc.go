// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package modelconfig resolves the active model configuration (API key,
// base URL, model name) from local storage.
//
// The record is a JSON object stored under a single fixed key. Resolve is a
// synchronous pre-flight check: when it fails with ErrConfigMissing no
// request is sent.
package modelconfig
