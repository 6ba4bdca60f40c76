// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package docstore provides a small document-oriented store over a durable
// key/value medium.
//
// Each named collection is a fully materialized in-memory slice of
// schema-flexible documents, mirrored one-to-one to a single key in the
// medium. Every mutating operation writes the full collection snapshot to
// the medium before scheduling a debounced, best-effort push to the remote
// sink; the two are independent failure domains and a failed sync never
// rolls back a local write.
//
// Query matching is restricted to exact equality on top-level fields.
package docstore
