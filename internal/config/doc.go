// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for deskmate.
//
// # Key Types
//
//   - Config: main configuration structure with all settings
//   - ServiceConfig: assistant service endpoint
//   - ChatConfig: streaming pipeline tuning (mode, playback cadence)
//   - LogConfig: rotating log file settings
//   - Watcher: reloads the file when it changes
//
// # Configuration Precedence
//
//   - Environment variables (DESKMATE_*)
//   - ~/.deskmate/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	url := cfg.ChatURL()
//
// The model API key is not part of this file; it lives in the local
// database (see package modelconfig).
package config
