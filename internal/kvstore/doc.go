// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kvstore provides a small SQLite-backed key-value table for local
// settings records such as the active model configuration.
package kvstore
