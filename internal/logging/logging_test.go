// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zap.DebugLevel,
		"DEBUG":   zap.DebugLevel,
		"warn":    zap.WarnLevel,
		"warning": zap.WarnLevel,
		"error":   zap.ErrorLevel,
		"info":    zap.InfoLevel,
		"":        zap.InfoLevel,
		"bogus":   zap.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestNew_WritesJSONFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, closer, err := New(Options{Level: "info", Dir: dir, File: "test.log"})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Named("session").Info("reply finished", zap.String("state", "Done"))
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1, "debug record should be filtered at info level")

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "reply finished", rec["message"])
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "session", rec["logger"])
	assert.Equal(t, "Done", rec["state"])
}

func TestWithDefaults(t *testing.T) {
	opts := withDefaults(Options{})
	assert.Equal(t, "log", opts.Dir)
	assert.Equal(t, "deskmate.log", opts.File)
	assert.Equal(t, 10, opts.MaxSizeMB)
	assert.Equal(t, 30, opts.MaxAgeDays)
}
