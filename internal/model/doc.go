// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared across the clarity
// client: chat messages with their attached task/resource plans, sessions,
// personas, and the dashboard plan listing.
package model
