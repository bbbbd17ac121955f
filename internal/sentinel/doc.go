// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sentinel encodes structured errors inside plain message text.
//
// Every failure tier of the chat pipeline (missing model configuration,
// transport failure, server error frames) reaches the user as an assistant
// message whose content is, or ends with, a sentinel:
//
//	__ERROR__|<short message>|<detail...>
//
// The detail is everything after the second delimiter, so it may itself
// contain "|". Renderers call Split once and need no other error path.
package sentinel
