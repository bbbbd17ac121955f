// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/deskmate/internal/config"
	"github.com/jeranaias/deskmate/internal/kvstore"
	"github.com/jeranaias/deskmate/internal/modelconfig"
	"github.com/jeranaias/deskmate/internal/sentinel"
	"github.com/jeranaias/deskmate/internal/transport"
)

// =============================================================================
// FAKES
// =============================================================================

type staticResolver struct {
	cfg modelconfig.ModelConfig
	err error
}

func (r staticResolver) Resolve(context.Context) (modelconfig.ModelConfig, error) {
	return r.cfg, r.err
}

var testModel = staticResolver{cfg: modelconfig.ModelConfig{APIKey: "sk-test", Model: "gpt-4o"}}

// scriptReader replays fixed chunks, then io.EOF.
type scriptReader struct {
	chunks []string
}

func (r *scriptReader) Next() ([]byte, error) {
	if len(r.chunks) == 0 {
		return nil, io.EOF
	}
	c := r.chunks[0]
	r.chunks = r.chunks[1:]
	return []byte(c), nil
}

func (r *scriptReader) Close() error { return nil }

type scriptTransport struct {
	mu       sync.Mutex
	chunks   []string
	requests []transport.ChatRequest
}

func (s *scriptTransport) Open(_ context.Context, req transport.ChatRequest) (transport.ChunkReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return &scriptReader{chunks: append([]string(nil), s.chunks...)}, nil
}

func testEnv(tr transport.Transport, res staticResolver) (*Env, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	cfg := config.Default()
	cfg.Chat.PlaybackIntervalMs = 1
	return &Env{
		Config:    cfg,
		Resolver:  res,
		Transport: tr,
		Stdout:    &stdout,
		Stderr:    &stderr,
	}, &stdout, &stderr
}

// =============================================================================
// ASK
// =============================================================================

func TestHandleAsk_StreamsReply(t *testing.T) {
	tr := &scriptTransport{chunks: []string{
		"data: {\"content\":\"Hel\"}\n",
		"data: {\"content\":\"lo\"}\n",
		"data: [DONE]\n",
	}}
	env, stdout, _ := testEnv(tr, testModel)

	err := HandleAsk(context.Background(), env, Args{Query: "hi there"})
	require.NoError(t, err)
	assert.Equal(t, "Hello\n", stdout.String())

	require.Len(t, tr.requests, 1)
	assert.Equal(t, "hi there", tr.requests[0].Message)
	assert.Equal(t, "sk-test", tr.requests[0].APIKey)
	assert.Equal(t, "private", tr.requests[0].Mode)
}

func TestHandleAsk_ReadsStdin(t *testing.T) {
	tr := &scriptTransport{chunks: []string{"data: {\"content\":\"ok\",\"done\":true}\n"}}
	env, stdout, _ := testEnv(tr, testModel)
	env.Stdin = strings.NewReader("  piped question\n")

	require.NoError(t, HandleAsk(context.Background(), env, Args{}))
	assert.Equal(t, "ok\n", stdout.String())
	assert.Equal(t, "piped question", tr.requests[0].Message)
}

func TestHandleAsk_NoQuestion(t *testing.T) {
	env, _, _ := testEnv(&scriptTransport{}, testModel)
	err := HandleAsk(context.Background(), env, Args{})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestHandleAsk_ServerErrorKeepsText(t *testing.T) {
	tr := &scriptTransport{chunks: []string{
		"data: {\"content\":\"ab\"}\ndata: {\"error\":\"quota exceeded\"}\n",
	}}
	env, stdout, _ := testEnv(tr, testModel)

	err := HandleAsk(context.Background(), env, Args{Query: "q"})
	var replyErr *ReplyError
	require.ErrorAs(t, err, &replyErr)
	assert.Equal(t, sentinel.ServerErrorShort, replyErr.Short)
	assert.Equal(t, "quota exceeded", replyErr.Detail)
	assert.Equal(t, "ab\n", stdout.String())
	assert.Equal(t, ExitGeneralError, GetExitCode(err))
}

func TestHandleAsk_ConfigMissing(t *testing.T) {
	tr := &scriptTransport{}
	env, stdout, _ := testEnv(tr, staticResolver{err: modelconfig.ErrConfigMissing})

	err := HandleAsk(context.Background(), env, Args{Query: "q"})
	var replyErr *ReplyError
	require.ErrorAs(t, err, &replyErr)
	assert.Equal(t, sentinel.ConfigMissing.Short, replyErr.Short)
	assert.Empty(t, stdout.String())
	assert.Empty(t, tr.requests, "no request without a model configuration")
}

func TestHandleAsk_JSON(t *testing.T) {
	tr := &scriptTransport{chunks: []string{
		"data: {\"content\":\"Hello\"}\ndata: {\"done\":true,\"message_id\":\"srv-9\"}\n",
	}}
	env, stdout, _ := testEnv(tr, testModel)

	require.NoError(t, HandleAsk(context.Background(), env, Args{Query: "q", JSON: true}))

	var resp struct {
		Success bool    `json:"success"`
		Data    AskData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Hello", resp.Data.Content)
	assert.Equal(t, "done", resp.Data.State)
	assert.Equal(t, "srv-9", resp.Data.ServerID)
	assert.Equal(t, 5, resp.Data.Bytes)
}

func TestHandleAsk_JSONErrorIsReportedOnce(t *testing.T) {
	tr := &scriptTransport{chunks: []string{"data: {\"error\":\"boom\"}\n"}}
	env, stdout, _ := testEnv(tr, testModel)

	err := HandleAsk(context.Background(), env, Args{Query: "q", JSON: true})
	require.Error(t, err)
	assert.Contains(t, stdout.String(), `"success": false`)

	var buf bytes.Buffer
	DisplayError(&buf, err, true)
	assert.Zero(t, buf.Len())
}

// =============================================================================
// MODEL
// =============================================================================

func openModels(t *testing.T) *modelconfig.Store {
	t.Helper()
	kv, err := kvstore.Open(filepath.Join(t.TempDir(), "deskmate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return modelconfig.NewStore(kv)
}

func TestHandleModel_SetShowClear(t *testing.T) {
	ctx := context.Background()
	env, stdout, _ := testEnv(nil, testModel)
	env.Models = openModels(t)

	require.NoError(t, HandleModel(ctx, env, Args{Raw: []string{"show"}}))
	assert.Contains(t, stdout.String(), "No model configured")

	stdout.Reset()
	err := HandleModel(ctx, env, Args{Raw: []string{"set", "--api-key", "sk-abcdef1234", "--model", "gpt-4o-mini"}})
	require.NoError(t, err)
	assert.NotContains(t, stdout.String(), "sk-abcdef1234")

	stdout.Reset()
	require.NoError(t, HandleModel(ctx, env, Args{Raw: []string{"show"}, JSON: true}))
	var resp struct {
		Data ModelData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.True(t, resp.Data.Configured)
	assert.Equal(t, "gpt-4o-mini", resp.Data.Model)
	assert.Equal(t, "*********1234", resp.Data.APIKey)

	require.NoError(t, HandleModel(ctx, env, Args{Raw: []string{"clear"}, Quiet: true}))
	_, err = env.Models.Resolver().Resolve(ctx)
	assert.ErrorIs(t, err, modelconfig.ErrConfigMissing)
}

func TestHandleModel_SetRequiresKey(t *testing.T) {
	env, _, _ := testEnv(nil, testModel)
	env.Models = openModels(t)

	err := HandleModel(context.Background(), env, Args{Raw: []string{"set", "--model", "x"}})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestHandleModel_UnknownSubcommand(t *testing.T) {
	env, _, _ := testEnv(nil, testModel)
	env.Models = openModels(t)

	err := HandleModel(context.Background(), env, Args{Raw: []string{"rename"}})
	var usage *UsageError
	assert.True(t, errors.As(err, &usage))
}

// =============================================================================
// CONFIG
// =============================================================================

func TestHandleConfig_SetAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	env, stdout, _ := testEnv(nil, testModel)

	err := HandleConfig(env, Args{ConfigPath: path, Raw: []string{"set", "chat.playback_interval_ms", "25"}})
	require.NoError(t, err)

	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Chat.PlaybackIntervalMs)

	stdout.Reset()
	env.Config = cfg
	require.NoError(t, HandleConfig(env, Args{ConfigPath: path, Raw: []string{"get", "chat.playback_interval_ms"}}))
	assert.Equal(t, "25\n", stdout.String())
}

func TestHandleConfig_SetRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	env, _, _ := testEnv(nil, testModel)

	err := HandleConfig(env, Args{ConfigPath: path, Raw: []string{"set", "chat.max_malformed_lines", "-1"}})
	assert.Equal(t, ExitConfigError, GetExitCode(err))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "invalid value must not be written")

	err = HandleConfig(env, Args{ConfigPath: path, Raw: []string{"set", "chat.nope", "1"}})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestHandleConfig_PathAndKeys(t *testing.T) {
	env, stdout, _ := testEnv(nil, testModel)

	require.NoError(t, HandleConfig(env, Args{ConfigPath: "/etc/deskmate.toml", Raw: []string{"path"}}))
	assert.Equal(t, "/etc/deskmate.toml\n", stdout.String())

	stdout.Reset()
	require.NoError(t, HandleConfig(env, Args{ConfigPath: "/etc/deskmate.toml", Raw: []string{"keys"}}))
	assert.Contains(t, stdout.String(), "service.url\n")
}

// =============================================================================
// SHELL
// =============================================================================

type scriptLines struct {
	lines []string
}

func (s *scriptLines) ReadLine(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	l := s.lines[0]
	s.lines = s.lines[1:]
	return l, nil
}

func (s *scriptLines) Close() error { return nil }

func TestRunShell_KeepsHistoryAcrossTurns(t *testing.T) {
	tr := &scriptTransport{chunks: []string{"data: {\"content\":\"ok\"}\ndata: [DONE]\n"}}
	env, stdout, _ := testEnv(tr, testModel)

	in := &scriptLines{lines: []string{"first", "", "second"}}
	require.NoError(t, runShell(context.Background(), env, Args{Quiet: true}, in))

	assert.Equal(t, "ok\nok\n", stdout.String())
	require.Len(t, tr.requests, 2)
	assert.Equal(t, "second", tr.requests[1].Message)
	require.Len(t, tr.requests[1].History, 2)
	assert.Equal(t, "first", tr.requests[1].History[0].Content)
	assert.Equal(t, "ok", tr.requests[1].History[1].Content)
}

func TestRunShell_ErrorDoesNotEndShell(t *testing.T) {
	tr := &scriptTransport{chunks: []string{"data: {\"error\":\"quota exceeded\"}\n"}}
	env, _, stderr := testEnv(tr, testModel)

	in := &scriptLines{lines: []string{"one", "two", "/quit", "three"}}
	require.NoError(t, runShell(context.Background(), env, Args{Quiet: true}, in))

	assert.Len(t, tr.requests, 2, "/quit ends the shell before the third line")
	assert.Contains(t, stderr.String(), "quota exceeded")
}

func TestRunShell_ClearStartsOver(t *testing.T) {
	tr := &scriptTransport{chunks: []string{"data: {\"content\":\"ok\",\"done\":true}\n"}}
	env, _, _ := testEnv(tr, testModel)

	in := &scriptLines{lines: []string{"first", "/clear", "second"}}
	require.NoError(t, runShell(context.Background(), env, Args{Quiet: true}, in))

	require.Len(t, tr.requests, 2)
	assert.Empty(t, tr.requests[1].History)
}
