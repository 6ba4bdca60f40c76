// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package docstore

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

// =============================================================================
// REMOTE SYNCER
// =============================================================================

// DefaultDebounce is the window after the last write before a remote push.
const DefaultDebounce = 500 * time.Millisecond

// collectionFiles maps collection names to stable logical filenames on the
// remote sink. Unknown collections fall back to "<name>.json".
var collectionFiles = map[string]string{
	"logs":     "chat_logs.json",
	"users":    "user_profile.json",
	"sessions": "sessions.json",
}

// LogicalFilename returns the sink filename for a collection.
func LogicalFilename(collection string) string {
	if f, ok := collectionFiles[collection]; ok {
		return f
	}
	return collection + ".json"
}

// savePayload is the wire shape the sink accepts.
type savePayload struct {
	Filename string          `json:"filename"`
	Content  json.RawMessage `json:"content"`
}

// RemoteSyncer pushes collection snapshots to the companion sink with a
// per-collection debounce window. Pushes are fire-and-forget: failures are
// logged and never retried or surfaced to the mutating caller.
type RemoteSyncer struct {
	url    string
	window time.Duration
	client *http.Client

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string][]byte
	wg      sync.WaitGroup
}

// NewRemoteSyncer creates a syncer posting to url. A window of zero uses
// DefaultDebounce.
func NewRemoteSyncer(url string, window time.Duration) *RemoteSyncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &RemoteSyncer{
		url:     url,
		window:  window,
		client:  &http.Client{Timeout: 10 * time.Second},
		timers:  make(map[string]*time.Timer),
		pending: make(map[string][]byte),
	}
}

// Schedule records the latest snapshot for the collection and (re)arms its
// debounce timer. Repeated writes within the window collapse to a single
// push of the most recent snapshot.
func (s *RemoteSyncer) Schedule(collection string, snapshot []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[collection] = snapshot

	if t, ok := s.timers[collection]; ok {
		t.Reset(s.window)
		return
	}
	s.timers[collection] = time.AfterFunc(s.window, func() {
		s.fire(collection)
	})
}

// fire pushes the pending snapshot for collection, if any.
func (s *RemoteSyncer) fire(collection string) {
	s.mu.Lock()
	snapshot, ok := s.pending[collection]
	delete(s.pending, collection)
	delete(s.timers, collection)
	if ok {
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	defer s.wg.Done()
	s.push(collection, snapshot)
}

// push performs one best-effort POST of {filename, content} to the sink.
func (s *RemoteSyncer) push(collection string, snapshot []byte) {
	filename := LogicalFilename(collection)

	body, err := json.Marshal(savePayload{
		Filename: filename,
		Content:  json.RawMessage(snapshot),
	})
	if err != nil {
		log.Printf("[sync] marshal %s: %v", filename, err)
		return
	}

	resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[sync] push %s failed (is the sink running?): %v", filename, err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Printf("[sync] push %s rejected: %s", filename, resp.Status)
		return
	}
	log.Printf("[sync] synced %s", filename)
}

// Flush pushes any pending snapshots immediately and waits for in-flight
// pushes to finish. Used on shutdown and in tests.
func (s *RemoteSyncer) Flush() {
	s.mu.Lock()
	collections := make([]string, 0, len(s.pending))
	for name, t := range s.timers {
		t.Stop()
		collections = append(collections, name)
	}
	s.mu.Unlock()

	for _, name := range collections {
		s.fire(name)
	}
	s.wg.Wait()
}
