// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the response envelope printed by commands run with --json.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
	Command   string  `json:"command,omitempty"`
}

// NewJSONResponse creates a successful JSON response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates an error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Fprint writes the response as indented JSON.
func (r *JSONResponse) Fprint(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// =============================================================================
// COMMAND DATA
// =============================================================================

// VersionData is the data of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// AskData is the data of the ask command.
type AskData struct {
	Content     string `json:"content"`
	State       string `json:"state"`
	ServerID    string `json:"server_id,omitempty"`
	ErrorShort  string `json:"error_short,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
	TTFTMs      int64  `json:"ttft_ms"`
	Chunks      int    `json:"chunks"`
	Bytes       int    `json:"bytes"`
}

// ModelData is the data of the model show command.
type ModelData struct {
	Configured bool   `json:"configured"`
	APIKey     string `json:"api_key,omitempty"` // Masked
	BaseURL    string `json:"base_url,omitempty"`
	Model      string `json:"model_name,omitempty"`
}
