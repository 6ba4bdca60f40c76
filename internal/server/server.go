// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/dojoquest/internal/util"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultPort is the default listen port.
	DefaultPort = 8000

	// MaxRequestBodySize caps a save request (5MB). Snapshots are full
	// collection dumps, so this leaves generous room for long transcripts.
	MaxRequestBodySize = 5 * 1024 * 1024

	// Version is the server version.
	Version = "0.1.0"
)

// mimeTypes maps file extensions for the static handler. The table is
// explicit so the server behaves the same regardless of the host OS's
// MIME database.
var mimeTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".htm":   "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "text/javascript; charset=utf-8",
	".mjs":   "text/javascript; charset=utf-8",
	".json":  "application/json",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".txt":   "text/plain; charset=utf-8",
}

// ============================================================================
// FILENAME VALIDATION
// ============================================================================

// ErrBadFilename rejects a save target outside the allowed namespace.
var ErrBadFilename = errors.New("invalid filename")

// validateFilename enforces the save sink's namespace: a bare .json file
// name with a conservative character set. Anything that could escape the
// resource directory or hide in a listing is rejected.
func validateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrBadFilename)
	}
	if name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: path separators not allowed", ErrBadFilename)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("%w: traversal not allowed", ErrBadFilename)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: hidden files not allowed", ErrBadFilename)
	}
	if !strings.HasSuffix(name, ".json") {
		return fmt.Errorf("%w: only .json files accepted", ErrBadFilename)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return fmt.Errorf("%w: character %q not allowed", ErrBadFilename, r)
		}
	}
	return nil
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the local backend. Zero-value fields are filled with defaults
// by NewServer.
type Server struct {
	port    int
	dataDir string
	webRoot string
	router  *http.ServeMux
	server  *http.Server
	limiter *RateLimiter
	cors    *CORSConfig
}

// NewServer creates a Server persisting snapshots under dataDir.
// If port is 0, the default port (8000) is used.
func NewServer(port int, dataDir string) *Server {
	if port == 0 {
		port = DefaultPort
	}

	s := &Server{
		port:    port,
		dataDir: dataDir,
		router:  http.NewServeMux(),
		limiter: DefaultRateLimiter(),
		cors:    DefaultCORSConfig(),
	}

	s.setupRoutes()
	return s
}

// WithWebRoot enables static hosting from the given directory.
func (s *Server) WithWebRoot(dir string) *Server {
	s.webRoot = dir
	return s
}

// WithCORS sets a custom CORS configuration.
func (s *Server) WithCORS(config *CORSConfig) *Server {
	s.cors = config
	return s
}

// WithRateLimiter sets a custom rate limiter.
func (s *Server) WithRateLimiter(rl *RateLimiter) *Server {
	s.limiter = rl
	return s
}

// Port returns the listen port.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the fully wrapped handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(),
		LoggingMiddleware(log.Default()),
		CORSMiddleware(s.cors),
		RateLimitMiddleware(s.limiter),
	)(s.router)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /api/save", s.handleSave)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /", s.handleStatic)
}

// ============================================================================
// SAVE SINK
// ============================================================================

// saveRequest is the wire body pushed by the client's debounced syncer.
type saveRequest struct {
	Filename string          `json:"filename"`
	Content  json.RawMessage `json:"content"`
}

// handleSave validates and persists one collection snapshot. The write is
// atomic, so a crash mid-save leaves the previous file intact.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req saveRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validateFilename(req.Filename); err != nil {
		log.Printf("SAVE_REJECTED | filename=%q error=%v", req.Filename, err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Content) == 0 {
		s.writeError(w, http.StatusBadRequest, "missing content")
		return
	}

	// Pretty-print so the on-disk files are diffable and hand-editable.
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, req.Content, "", "  "); err != nil {
		s.writeError(w, http.StatusBadRequest, "content is not valid JSON")
		return
	}

	target := filepath.Join(s.dataDir, req.Filename)
	if err := util.AtomicWriteFile(target, []byte(pretty.String()), 0644); err != nil {
		log.Printf("SAVE_FAILED | file=%s error=%v", req.Filename, err)
		s.writeError(w, http.StatusInternalServerError, "failed to persist file")
		return
	}

	log.Printf("SAVE_OK | file=%s bytes=%d", req.Filename, pretty.Len())
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"file":   req.Filename,
	})
}

// ============================================================================
// HEALTH
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": Version,
	})
}

// ============================================================================
// STATIC HOSTING
// ============================================================================

// handleStatic serves files from the web root, defaulting to index.html.
// Requests are confined to the root; traversal attempts 404.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if s.webRoot == "" {
		http.NotFound(w, r)
		return
	}

	name := path.Clean(r.URL.Path)
	if name == "/" || name == "." {
		name = "/index.html"
	}
	if strings.Contains(name, "..") {
		http.NotFound(w, r)
		return
	}

	target := filepath.Join(s.webRoot, filepath.FromSlash(name))
	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	if ct, ok := mimeTypes[strings.ToLower(filepath.Ext(target))]; ok {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	http.ServeFile(w, r, target)
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s data=%s version=%s", addr, s.dataDir, Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
