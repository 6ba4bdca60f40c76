// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements argument parsing and command handlers for the
// dojoquest binary.
//
// # Commands
//
//   - chat    Interactive chat session (default command)
//   - serve   Local backend: save sink and static hosting
//   - status  Player progression summary
//   - config  Show or change configuration
//   - export  Dump all collections as JSON
//
// The chat command wires the full stack: SQLite-backed document store,
// player state, the streaming completion client, and the turn orchestrator;
// the terminal acts as the orchestrator's UI.
package cli
