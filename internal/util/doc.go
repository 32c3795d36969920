// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the clarity client:
// atomic file writes for records that must never be observed half-written
// (the credential cache, the config file) and rune/width-aware string
// truncation for transcript previews.
package util
