// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the streaming client for the chat completion API.
//
// A Client holds at most one request in flight; starting a new stream
// silently cancels the previous one (neither its onComplete nor its onError
// fires). Content deltas are delivered to the caller in frame order, and
// malformed individual event frames are skipped without aborting the
// stream.
package cloud
