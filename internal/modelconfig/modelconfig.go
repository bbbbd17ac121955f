// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package modelconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/deskmate/internal/kvstore"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// Key is the fixed storage key of the active model configuration record.
const Key = "ai.active_model"

// DefaultModel is used when the record names no model.
const DefaultModel = "gpt-4o"

// ErrConfigMissing means there is no usable active model configuration:
// the record is absent, unreadable, or has an empty API key.
var ErrConfigMissing = errors.New("model configuration missing")

// =============================================================================
// MODEL CONFIG
// =============================================================================

// ModelConfig is the read-only snapshot of the active model configuration.
type ModelConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model_name"`
}

// Validate checks the fields required before any request is sent.
func (c ModelConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrConfigMissing
	}
	return nil
}

// MaskedKey returns the API key with all but the last four characters hidden.
func (c ModelConfig) MaskedKey() string {
	key := c.APIKey
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

// =============================================================================
// RESOLVER
// =============================================================================

// Source reads raw records by key. *kvstore.Store satisfies it.
type Source interface {
	Get(ctx context.Context, key string) (string, error)
}

// Resolver reads and validates the active model configuration. It performs
// no network activity.
type Resolver struct {
	src Source
}

// NewResolver creates a resolver over src.
func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

// Resolve returns the active configuration or an error wrapping
// ErrConfigMissing when it is absent, undecodable, or lacks an API key.
func (r *Resolver) Resolve(ctx context.Context) (ModelConfig, error) {
	if r == nil || r.src == nil {
		return ModelConfig{}, ErrConfigMissing
	}

	raw, err := r.src.Get(ctx, Key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return ModelConfig{}, ErrConfigMissing
	}
	if err != nil {
		return ModelConfig{}, fmt.Errorf("%w: %v", ErrConfigMissing, err)
	}

	var cfg ModelConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return ModelConfig{}, fmt.Errorf("%w: invalid record: %v", ErrConfigMissing, err)
	}
	if err := cfg.Validate(); err != nil {
		return ModelConfig{}, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return cfg, nil
}

// =============================================================================
// STORE
// =============================================================================

// Store writes the active configuration record. It is the seam used by the
// settings surface; the chat pipeline only reads through Resolver.
type Store struct {
	kv *kvstore.Store
}

// NewStore creates a store over kv.
func NewStore(kv *kvstore.Store) *Store {
	return &Store{kv: kv}
}

// Save replaces the active configuration record.
func (s *Store) Save(ctx context.Context, cfg ModelConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode model config: %w", err)
	}
	return s.kv.Put(ctx, Key, string(data))
}

// Clear removes the active configuration record.
func (s *Store) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, Key)
}

// Resolver returns a resolver reading from the same database.
func (s *Store) Resolver() *Resolver {
	return NewResolver(s.kv)
}
