// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package game owns the player profile, sessions, and chat log on top of
// the document store. It maps game-loop intents (award XP, unlock a skill,
// record a failure) to store mutations, applying the per-mode level-cap
// policy that stops XP farming in outleveled zones.
//
// The State is the only writer of the profile document; everything else
// reads snapshots and issues intents.
package game
