// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across deskmate.
//
//   - AtomicWriteFile: crash-safe file writing with fsync
//   - TruncateRunes, TruncateWidth, StringWidth: display-safe truncation
//   - Preview: single-line excerpt for logs and status lines
package util
