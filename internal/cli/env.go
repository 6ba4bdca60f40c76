// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// env.go - Shared environment setup for CLI commands.
//
// Every command that touches player data goes through openEnv, which wires
// config, the SQLite medium, the document store, and the game state in one
// place so commands cannot disagree about where data lives.
package cli

import (
	"fmt"
	"time"

	"github.com/jeranaias/dojoquest/internal/config"
	"github.com/jeranaias/dojoquest/internal/docstore"
	"github.com/jeranaias/dojoquest/internal/game"
	"github.com/jeranaias/dojoquest/internal/kv"
)

// env bundles the opened data stack for one command invocation.
type env struct {
	cfg    *config.Config
	medium kv.Medium
	db     *docstore.DB
	state  *game.State
	syncer *docstore.RemoteSyncer
}

// openEnv loads config and opens the full local stack.
func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if err := config.EnsureConfigDir(); err != nil {
		return nil, fmt.Errorf("config directory: %w", err)
	}
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}

	medium, err := kv.OpenSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var opts []docstore.Option
	var syncer *docstore.RemoteSyncer
	if cfg.Sync.Enabled {
		syncer = docstore.NewRemoteSyncer(cfg.Sync.URL,
			time.Duration(cfg.Sync.DebounceMs)*time.Millisecond)
		opts = append(opts, docstore.WithSyncer(syncer))
	}

	db := docstore.Open(medium, opts...)
	state, err := game.NewState(db)
	if err != nil {
		medium.Close()
		return nil, fmt.Errorf("load player state: %w", err)
	}

	return &env{cfg: cfg, medium: medium, db: db, state: state, syncer: syncer}, nil
}

// close flushes pending sync pushes and releases the database.
func (e *env) close() {
	if e.syncer != nil {
		e.syncer.Flush()
	}
	e.medium.Close()
}
