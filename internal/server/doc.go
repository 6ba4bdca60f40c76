// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the local game backend HTTP server.
//
// It hosts the document save sink used by the client's debounced syncer
// and, optionally, serves the browser front-end as static files.
//
// # Endpoints
//
//   - POST /api/save - persist a collection snapshot as a JSON file
//   - GET  /health   - health check
//   - GET  /...      - static files from the configured web root
//
// # Save contract
//
// The sink accepts a JSON body of the form {"filename": ..., "content": ...}.
// Filenames are confined to bare .json names with a conservative character
// set; the content is pretty-printed and written atomically, so a crash
// mid-save never corrupts the previous snapshot.
//
// # Usage
//
//	srv := server.NewServer(8000, dataDir).WithWebRoot(webDir)
//	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
//		log.Fatal(err)
//	}
package server
