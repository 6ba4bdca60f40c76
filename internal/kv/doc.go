// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kv provides the durable key/value medium backing the document
// store. The medium has no query capability beyond prefix-scanning keys;
// all document semantics live in the docstore package.
//
// Two implementations are provided:
//   - SQLiteKV: a single-table store on modernc.org/sqlite (the default)
//   - MemoryKV: a map-backed store for tests
package kv
