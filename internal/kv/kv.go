// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kv

// Medium is a durable string key to string value store.
//
// Implementations must be safe for use from a single writer; the document
// store never issues concurrent mutations against the same medium.
type Medium interface {
	// Get returns the value for key. The boolean reports whether the key
	// exists; a missing key is not an error.
	Get(key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is a no-op.
	Delete(key string) error

	// Keys returns all keys beginning with prefix, in unspecified order.
	Keys(prefix string) ([]string, error)

	// Close releases any resources held by the medium.
	Close() error
}
