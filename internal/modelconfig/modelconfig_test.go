// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package modelconfig

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/deskmate/internal/kvstore"
)

type mapSource map[string]string

func (m mapSource) Get(_ context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", kvstore.ErrNotFound
	}
	return v, nil
}

type failingSource struct{}

func (failingSource) Get(context.Context, string) (string, error) {
	return "", errors.New("disk on fire")
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		src     Source
		want    ModelConfig
		missing bool
	}{
		{"absent record", mapSource{}, ModelConfig{}, true},
		{"empty key", mapSource{Key: `{"api_key":"","base_url":"u","model_name":"m"}`}, ModelConfig{}, true},
		{"blank key", mapSource{Key: `{"api_key":"   "}`}, ModelConfig{}, true},
		{"invalid json", mapSource{Key: `{`}, ModelConfig{}, true},
		{"read failure", failingSource{}, ModelConfig{}, true},
		{
			"complete",
			mapSource{Key: `{"api_key":"sk-1","base_url":"https://api.example.com/v1","model_name":"gpt-4o-mini"}`},
			ModelConfig{APIKey: "sk-1", BaseURL: "https://api.example.com/v1", Model: "gpt-4o-mini"},
			false,
		},
		{
			"default model",
			mapSource{Key: `{"api_key":"sk-1"}`},
			ModelConfig{APIKey: "sk-1", Model: DefaultModel},
			false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewResolver(tc.src).Resolve(context.Background())
			if tc.missing {
				assert.ErrorIs(t, err, ErrConfigMissing)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolve_NilResolver(t *testing.T) {
	var r *Resolver
	_, err := r.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrConfigMissing)
}

func TestStore_SaveAndResolve(t *testing.T) {
	ctx := context.Background()
	kv, err := kvstore.Open(":memory:")
	require.NoError(t, err)
	defer kv.Close()

	store := NewStore(kv)
	_, err = store.Resolver().Resolve(ctx)
	assert.ErrorIs(t, err, ErrConfigMissing)

	cfg := ModelConfig{APIKey: "sk-abcdef", BaseURL: "https://api.example.com/v1", Model: "gpt-4o"}
	require.NoError(t, store.Save(ctx, cfg))

	got, err := store.Resolver().Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Resolver().Resolve(ctx)
	assert.ErrorIs(t, err, ErrConfigMissing)
}

func TestMaskedKey(t *testing.T) {
	assert.Equal(t, "*****cdef", ModelConfig{APIKey: "sk-abcdef"}.MaskedKey())
	assert.Equal(t, "***", ModelConfig{APIKey: "abc"}.MaskedKey())
	assert.Equal(t, "", ModelConfig{}.MaskedKey())
}
